package storage

import (
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"recording-ingest/config"
)

// ErrCredentialResolution means no usable credential shape was found.
// Fatal for all storage operations until configuration changes.
var ErrCredentialResolution = errors.New("no usable storage credentials")

// Credentials is resolved static key material. Ambient means nothing was
// configured explicitly and the platform default chain should be used.
type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Ambient         bool
}

type credentialBlob struct {
	AccessKeyID     string `json:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key"`
	SessionToken    string `json:"session_token"`
}

// ResolveCredentials picks the first usable credential shape, in order:
// an inline JSON blob, discrete access id plus key material, then the
// ambient platform chain. Deployment environments differ in how they
// inject service credentials, so no single shape is assumed.
func ResolveCredentials(cfg *config.Storage) (*Credentials, error) {
	if blob := strings.TrimSpace(cfg.CredentialsJSON); blob != "" {
		var c credentialBlob
		if err := json.Unmarshal([]byte(blob), &c); err != nil {
			return nil, errors.Join(ErrCredentialResolution, fmt.Errorf("inline credential blob: %w", err))
		}
		if c.AccessKeyID == "" || c.SecretAccessKey == "" {
			return nil, errors.Join(ErrCredentialResolution, errors.New("inline credential blob is missing key fields"))
		}
		return &Credentials{AccessKeyID: c.AccessKeyID, SecretAccessKey: c.SecretAccessKey, SessionToken: c.SessionToken}, nil
	}

	if cfg.AccessID != "" {
		secret, embeddedID, err := normalizeKeyMaterial(cfg.SecretAccessKey)
		if err != nil {
			return nil, errors.Join(ErrCredentialResolution, err)
		}
		accessID := cfg.AccessID
		if embeddedID != "" {
			accessID = embeddedID
		}
		return &Credentials{AccessKeyID: accessID, SecretAccessKey: secret}, nil
	}

	return &Credentials{Ambient: true}, nil
}

// normalizeKeyMaterial accepts the key material raw, PEM-armored, or as
// base64-encoded JSON carrying the key fields. It returns the secret and
// an access id when the wrapped JSON carries one.
func normalizeKeyMaterial(material string) (secret string, accessID string, err error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return "", "", errors.New("key material is empty")
	}

	if strings.HasPrefix(material, "-----BEGIN") {
		block, _ := pem.Decode([]byte(material))
		if block == nil {
			return "", "", errors.New("key material looks PEM-armored but failed to decode")
		}
		return strings.TrimSpace(string(block.Bytes)), "", nil
	}

	if decoded, decErr := base64.StdEncoding.DecodeString(material); decErr == nil {
		trimmed := strings.TrimSpace(string(decoded))
		if strings.HasPrefix(trimmed, "{") {
			var c credentialBlob
			if jsonErr := json.Unmarshal([]byte(trimmed), &c); jsonErr != nil {
				return "", "", fmt.Errorf("base64-wrapped credential JSON: %w", jsonErr)
			}
			if c.SecretAccessKey == "" {
				return "", "", errors.New("base64-wrapped credential JSON is missing secret_access_key")
			}
			return c.SecretAccessKey, c.AccessKeyID, nil
		}
	}

	return material, "", nil
}
