package capability

import (
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

const (
	privateKeyFile = "capability_ed25519.key"
	publicKeyFile  = "capability_ed25519.pub"
)

// KeyPair holds the Ed25519 keys used to sign and verify capability
// tokens for a single user/project scope.
type KeyPair struct {
	Private ed25519.PrivateKey
	Public  ed25519.PublicKey
}

// LoadOrGenerateKeyPair reads the signing key from dir, generating and
// persisting a new one if none exists. dir is created with mode 0700; the
// private key file is written 0600, the public key 0644.
func LoadOrGenerateKeyPair(dir string) (*KeyPair, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("capability: creating key dir %s: %w", dir, err)
	}

	privPath := filepath.Join(dir, privateKeyFile)
	pubPath := filepath.Join(dir, publicKeyFile)

	if privBytes, err := os.ReadFile(privPath); err == nil {
		if len(privBytes) != ed25519.PrivateKeySize {
			return nil, fmt.Errorf("capability: corrupt private key at %s", privPath)
		}
		priv := ed25519.PrivateKey(privBytes)
		return &KeyPair{Private: priv, Public: priv.Public().(ed25519.PublicKey)}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("capability: reading private key %s: %w", privPath, err)
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("capability: generating key pair: %w", err)
	}
	if err := os.WriteFile(privPath, priv, 0o600); err != nil {
		return nil, fmt.Errorf("capability: writing private key %s: %w", privPath, err)
	}
	if err := os.WriteFile(pubPath, pub, 0o644); err != nil {
		return nil, fmt.Errorf("capability: writing public key %s: %w", pubPath, err)
	}
	return &KeyPair{Private: priv, Public: pub}, nil
}
