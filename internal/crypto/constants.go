package crypto

const (
	// RSAKeyBits is the modulus size of every identity key pair.
	RSAKeyBits = 2048
	// RSAPublicExponent is the fixed public exponent (0x10001).
	RSAPublicExponent = 65537
	// RSAKeySize is the size in bytes of a 2048-bit modulus, and therefore
	// of an OAEP-wrapped content key and of a PKCS#1 v1.5 signature.
	RSAKeySize = RSAKeyBits / 8

	// ContentKeySize is the size of the AES-128 content key in bytes.
	ContentKeySize = 16
	// GCMNonceSize is the size of an AES-GCM nonce in bytes.
	GCMNonceSize = 12
	// GCMTagSize is the size of an AES-GCM authentication tag in bytes.
	GCMTagSize = 16

	// EnvelopeHeaderSize is the fixed-size prefix of a hybrid envelope:
	// wrapped key || nonce || tag.
	EnvelopeHeaderSize = RSAKeySize + GCMNonceSize + GCMTagSize

	// BoxSaltSize is the size of the PBKDF2 salt in a password box.
	BoxSaltSize = 16
	// BoxIVSize is the size of the AES-CBC IV in a legacy password box.
	BoxIVSize = 16
	// BoxDerivedKeySize is the PBKDF2 output length. Only the first
	// BoxCipherKeySize bytes key the cipher.
	BoxDerivedKeySize = 32
	// BoxCipherKeySize is the AES-128 key size used by password boxes.
	BoxCipherKeySize = 16
	// DefaultKDFIterations is the PBKDF2 iteration count of existing boxes.
	DefaultKDFIterations = 10000

	// boxVersionGCM prefixes boxes sealed with the authenticated scheme.
	boxVersionGCM byte = 0x02

	// SignatureB64Size is the length of a standard base64 encoded
	// 2048-bit signature.
	SignatureB64Size = 344

	// FingerprintSize is the decoded size of a public key fingerprint.
	FingerprintSize = 32
)
