package session

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Credential is the on-disk form of a logged-in session, so a restart does
// not force re-authentication until the token expires.
type Credential struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`
}

// SaveCredential writes the credential to path (0600), creating parent
// directories as needed.
func SaveCredential(path string, cred Credential) error {
	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadCredential reads a previously saved credential. A missing file returns
// (nil, nil): not an error, just not logged in.
func LoadCredential(path string) (*Credential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, err
	}
	if cred.Token == "" {
		return nil, nil
	}
	return &cred, nil
}

// ClearCredential removes the stored credential. Missing files are fine.
func ClearCredential(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
