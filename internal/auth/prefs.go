// Package auth keeps the device preferences: the shared household PIN and
// whether this device has already been unlocked.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPIN is the PIN until someone changes it.
const DefaultPIN = "1430"

const pinLength = 4

var (
	ErrInvalidPIN = errors.New("PIN must be exactly 4 digits")
	ErrWrongPIN   = errors.New("wrong PIN")
	ErrLocked     = errors.New("device is locked")
)

var hashCost = bcrypt.DefaultCost

type prefs struct {
	PINHash       string `json:"pinHash"`
	Authenticated bool   `json:"authenticated"`
}

// Prefs is the on-disk preference file. All methods are safe for concurrent
// use.
type Prefs struct {
	path   string
	logger *slog.Logger

	mu       sync.Mutex
	data     prefs
	verified string
}

// Open loads the preference file at path. A missing file yields the default
// PIN; the file is only written on the first change.
func Open(path string, logger *slog.Logger) (*Prefs, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Prefs{path: path, logger: logger.With("component", "auth")}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPIN), hashCost)
		if err != nil {
			return nil, fmt.Errorf("hash default PIN: %w", err)
		}
		p.data.PINHash = string(hash)
		return p, nil
	case err != nil:
		return nil, fmt.Errorf("read prefs: %w", err)
	}

	if err := json.Unmarshal(raw, &p.data); err != nil {
		return nil, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	if p.data.PINHash == "" {
		return nil, fmt.Errorf("prefs %s: no PIN hash", path)
	}
	return p, nil
}

// ValidPIN reports whether pin has the required shape.
func ValidPIN(pin string) bool {
	if len(pin) != pinLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Check compares pin against the stored hash without touching the
// authenticated flag.
func (p *Prefs) Check(pin string) error {
	if !ValidPIN(pin) {
		return ErrInvalidPIN
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkLocked(pin)
}

func (p *Prefs) checkLocked(pin string) error {
	if p.verified != "" && subtle.ConstantTimeCompare([]byte(p.verified), []byte(pin)) == 1 {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(p.data.PINHash), []byte(pin)); err != nil {
		return ErrWrongPIN
	}
	p.verified = pin
	return nil
}

// Unlock checks pin and marks the device authenticated.
func (p *Prefs) Unlock(pin string) error {
	if !ValidPIN(pin) {
		return ErrInvalidPIN
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.checkLocked(pin); err != nil {
		p.logger.Warn("Unlock rejected")
		return err
	}
	if p.data.Authenticated {
		return nil
	}
	p.data.Authenticated = true
	return p.saveLocked()
}

// Lock clears the authenticated flag.
func (p *Prefs) Lock() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data.Authenticated = false
	return p.saveLocked()
}

func (p *Prefs) Authenticated() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data.Authenticated
}

// RequireUnlocked returns ErrLocked unless this device has been unlocked.
func (p *Prefs) RequireUnlocked() error {
	if !p.Authenticated() {
		return ErrLocked
	}
	return nil
}

// SetPIN replaces the PIN. The new PIN must be exactly four digits.
func (p *Prefs) SetPIN(pin string) error {
	if !ValidPIN(pin) {
		return ErrInvalidPIN
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), hashCost)
	if err != nil {
		return fmt.Errorf("hash PIN: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	old := p.data.PINHash
	p.data.PINHash = string(hash)
	p.verified = ""
	if err := p.saveLocked(); err != nil {
		p.data.PINHash = old
		return err
	}
	p.logger.Info("PIN changed")
	return nil
}

// saveLocked writes the file through a temp file and rename.
func (p *Prefs) saveLocked() error {
	raw, err := json.MarshalIndent(p.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	dir := filepath.Dir(p.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".prefs-*")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), p.path); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}
