package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
)

// RecordName is the fixed name of the SMS settings record in the settings
// table. The record is always read and written as a whole.
const RecordName = "sms_manager"

// Settings is the admin-editable SMS configuration. Partial configuration is
// a valid persisted state; sending requires every credential field to be
// non-empty.
type Settings struct {
	Enabled         bool   `json:"enabled"`
	AccountSID      string `json:"account_sid"`
	AuthToken       string `json:"auth_token"`
	FromNumber      string `json:"from_number"`
	MessageTemplate string `json:"message_template"`
}

// Record abstracts the whole-record persistence the store needs.
type Record interface {
	GetSettingsRecord(ctx context.Context, name string) ([]byte, bool, error)
	SaveSettingsRecord(ctx context.Context, name string, value []byte) error
}

// Store loads and saves the Settings record. Every Load is a fresh read;
// the store performs no caching so concurrent admin edits take effect on the
// next dispatch.
type Store struct {
	record Record
	logger *slog.Logger
}

// NewStore returns a Store backed by the given record persistence.
func NewStore(record Record, logger *slog.Logger) *Store {
	return &Store{
		record: record,
		logger: logger.With("component", "settings"),
	}
}

// Load fetches the current settings snapshot. A missing record yields the
// zero value (disabled, unconfigured) rather than an error.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	raw, found, err := s.record.GetSettingsRecord(ctx, RecordName)
	if err != nil {
		return Settings{}, fmt.Errorf("load settings: %w", err)
	}
	if !found {
		return Settings{}, nil
	}

	var st Settings
	if err := json.Unmarshal(raw, &st); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}
	return st, nil
}

// Save persists the whole settings record.
func (s *Store) Save(ctx context.Context, st Settings) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := s.record.SaveSettingsRecord(ctx, RecordName, raw); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	s.logger.Info("settings saved", "enabled", st.Enabled)
	return nil
}
