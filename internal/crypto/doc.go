// Package crypto provides the client-side cryptographic primitives for eerip
// identities and messages. Plaintext and private keys never leave this
// package except to the caller that owns them.
//
// # Algorithm Suite
//
//   - RSA-2048, public exponent 65537: identity key pairs.
//
//   - RSA-OAEP (SHA-1, MGF1-SHA-1, empty label): wraps the per-message
//     content key for the recipient.
//
//   - AES-128-GCM: encrypts message text. The 16-byte tag is the integrity
//     guarantee for an envelope; any change to nonce, tag or ciphertext
//     makes decryption fail.
//
//   - RSASSA-PKCS1-v1_5 with SHA-256: message signatures. Deterministic.
//
//   - PBKDF2-HMAC-SHA1 (10000 iterations, 32-byte output) with AES-128-CBC
//     and PKCS#7: password boxes for keys at rest. [SchemeGCM] replaces CBC
//     with AES-128-GCM for new stores that do not need compatibility.
//
// # Wire Formats
//
// A hybrid envelope is the standard base64 encoding of
//
//	wrapped_key (256) || nonce (12) || tag (16) || ciphertext
//
// and a password box is the standard base64 encoding of
//
//	salt (16) || iv (16) || ciphertext
//
// Neither carries a version or length prefix; offsets are fixed.
//
// # Security Notes
//
// CBC password boxes have no MAC. A wrong password and a tampered box both
// surface as [ErrPasswordBoxDecrypt] and cannot be distinguished.
//
// [HybridCipher.Decrypt] returns a [CipherError] whose text is the same for
// every failure stage. Do not forward Stage to untrusted peers.
//
// Randomness always comes from an injected [Provider]. Use [SystemProvider]
// outside of tests.
package crypto
