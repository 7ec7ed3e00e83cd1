// Package secratechat provides a Go client SDK for Secrate Chat,
// an end-to-end encrypted messaging service.
//
// Messages are encrypted client-side with a fresh AES-256-GCM content key
// per message; the content key is wrapped with RSA-OAEP for every recipient,
// sender included. The account private key never leaves the device in the
// clear: it is wrapped under a password-derived key and kept in a local
// vault.
//
// Basic usage:
//
//	client, err := secratechat.New("your-api-key")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// First run on this device
//	session, err := client.Register(ctx, "alice", "correct horse battery staple")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Send an encrypted message
//	_, err = session.Send(ctx, "hello bob", "bob")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Read history
//	msgs, err := session.Messages(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range msgs {
//	    fmt.Println(m.SenderID, m.Text)
//	}
package secratechat
