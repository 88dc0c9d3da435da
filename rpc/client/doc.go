// Package client implements the client side of the sKV protocol.
//
// A Client owns one TLS connection and one session. Requests are strictly
// lock-step: every request waits for its reply. Values are stored together
// with their SHA-256 digest, Get recomputes the digest and reports
// ErrDataModified on a mismatch.
//
// Replies that end the session on the server side (the rate limit notice)
// and replies the client cannot interpret close the connection. Later
// requests return ErrNotConnected until Connect is called again.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:      "localhost:5000",
//	  ClientID:      "Alice",
//	  CAFile:        "cert.pem",
//	  TimeoutSecond: 5,
//	}
//
//	c := client.NewClient(config, tls.NewClientConnector())
//	if err := c.Connect(ctx); err != nil {
//	  log.Fatal(err)
//	}
//	defer c.Disconnect()
//
//	_ = c.Put("greeting", "hello")
//	value, err := c.Get("greeting")
package client
