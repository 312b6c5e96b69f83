/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"time"
)

// Device is an SMS-forwarding source registered to a merchant. Only a hash of
// its credential is ever stored.
type Device struct {
	DeviceID       string     `json:"device_id"`
	MerchantID     string     `json:"merchant_id"`
	Name           string     `json:"name"`
	CredentialHash string     `json:"-"`
	IsRevoked      bool       `json:"is_revoked"`
	RevokedAt      *time.Time `json:"revoked_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastSeenAt     *time.Time `json:"last_seen_at,omitempty"`
}

// GenerateCredential creates a new secure device credential.
func GenerateCredential() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// HashCredential returns the one-way hash persisted for a credential.
func HashCredential(credential string) string {
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}

// NewDevice creates a device and the plaintext credential that goes with it.
// The credential is returned exactly once; callers must hand it to the owner
// and drop it.
func NewDevice(merchantID, name string) (*Device, string, error) {
	credential, err := GenerateCredential()
	if err != nil {
		return nil, "", err
	}

	return &Device{
		DeviceID:       GenerateUUIDWithSuffix("dev"),
		MerchantID:     merchantID,
		Name:           name,
		CredentialHash: HashCredential(credential),
		CreatedAt:      time.Now(),
	}, credential, nil
}

// VerifyCredential checks a presented credential against the stored hash.
func (d *Device) VerifyCredential(credential string) bool {
	if credential == "" || d.CredentialHash == "" {
		return false
	}
	presented := HashCredential(credential)
	return subtle.ConstantTimeCompare([]byte(presented), []byte(d.CredentialHash)) == 1
}

// IsActive reports whether the device may submit messages.
func (d *Device) IsActive() bool {
	return !d.IsRevoked
}
