// Package eerip provides a Go client SDK for pseudonymous end-to-end
// encrypted messaging.
//
// A user holds an RSA-2048 identity. Messages are sealed for a recipient's
// public key with a hybrid RSA-OAEP + AES-128-GCM envelope and signed with
// RSASSA-PKCS1-v1_5 over SHA-256. Identities are persisted only in wrapped
// form: both PEM halves are encrypted under the user's password with a
// PBKDF2-derived AES key before they reach the key store.
//
// Basic usage:
//
//	client, err := eerip.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Create and persist an identity
//	alice, err := client.CreateIdentity(ctx, "alice", password)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Encrypt for alice and open it again
//	envelope, err := client.EncryptFor("hello", alice.PublicKeyPEM())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	text, err := alice.Decrypt(envelope)
//	if err != nil {
//	    fmt.Println(eerip.UserMessage(err))
//	}
//
// Later sessions list the stored records with Identities and open one with
// Unlock.
package eerip
