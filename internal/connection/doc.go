// Package connection implements the Push Channel Client.
//
// The Push Channel Client:
//   - Opens one physical connection per subscribed topic (auction bid stream,
//     user notifications, home feed summary)
//   - Speaks SSE (text/event-stream) or WebSocket
//   - Decodes frames into model.PushEvent values; garbage frames are dropped
//   - Reports a connection error once, then closes; it never retries on its own
package connection
