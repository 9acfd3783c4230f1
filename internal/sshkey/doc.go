// Package sshkey manages local SSH key material for cloudctl.
//
// # Key Generation
//
// Generator.Generate creates an RSA 4096 key pair with ssh-keygen inside the
// managed key directory (normally ~/.ssh):
//
//	gen := sshkey.NewGenerator("~/.ssh", exec.NewLocalRunner())
//	pair, err := gen.Generate(ctx, "id_rsa_cloud", password)
//
// The filename and password are validated before ssh-keygen is started, and
// an existing file at the target path is never overwritten.
//
// # Key Pairs
//
// A public key always lives next to its private key with a ".pub" suffix.
// PublicPath is the single place that derivation happens; the keychain
// registrar and the uploader both go through it.
//
// # Public Key Handling
//
// FindPublicKeys lists candidate keys for upload, ReadPublicKey loads one and
// Normalize reduces a key line to "<algorithm> <base64>" so keys can be
// compared regardless of trailing comments or whitespace.
package sshkey
