package config

import (
	"bytes"
	"encoding/base64"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides: "mfa.master_key" is read from
// MYNOTES_MFA_MASTER_KEY when set.
const EnvPrefix = "MYNOTES"

var ErrConfigType = errors.New("config: type is required")

// Viper is the Config backed by spf13/viper. Reads are safe while the file
// is being reloaded.
type Viper struct {
	mu sync.RWMutex
	v  *viper.Viper
}

func newViper() *Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &Viper{v: v}
}

// NewViper reads the file at pathFile, format taken from its extension, and
// reloads it whenever it changes on disk.
func NewViper(pathFile string) (*Viper, error) {
	vc := newViper()
	vc.v.SetConfigFile(filepath.Clean(pathFile))

	if err := vc.v.ReadInConfig(); err != nil {
		return nil, err
	}

	vc.v.OnConfigChange(func(e fsnotify.Event) {
		vc.mu.Lock()
		err := vc.v.ReadInConfig()
		vc.mu.Unlock()

		if err != nil {
			slog.Error("config reload failed", "path", e.Name, "error", err)
			return
		}
		slog.Info("config reloaded", "path", e.Name, "op", e.Op.String())
	})
	vc.v.WatchConfig()

	return vc, nil
}

// NewViperFromBytes reads an in-memory document of configType ("yaml",
// "json", ...). It is not watched.
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	configType = strings.TrimSpace(configType)
	if configType == "" {
		return nil, ErrConfigType
	}

	vc := newViper()
	vc.v.SetConfigType(configType)
	if err := vc.v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return vc, nil
}

func (vc *Viper) get(key string) any {
	vc.mu.RLock()
	defer vc.mu.RUnlock()

	return vc.v.Get(key)
}

func (vc *Viper) GetInt(key string) int         { return cast.ToInt(vc.get(key)) }
func (vc *Viper) GetUint64(key string) uint64   { return cast.ToUint64(vc.get(key)) }
func (vc *Viper) GetBool(key string) bool       { return cast.ToBool(vc.get(key)) }
func (vc *Viper) GetFloat64(key string) float64 { return cast.ToFloat64(vc.get(key)) }
func (vc *Viper) GetString(key string) string   { return cast.ToString(vc.get(key)) }
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(cast.ToInt64(vc.get(key))) * time.Second
}

func (vc *Viper) GetMinute(key string) time.Duration {
	return time.Duration(cast.ToInt64(vc.get(key))) * time.Minute
}

// GetBinary decodes a standard base64 value. Invalid input yields nil.
func (vc *Viper) GetBinary(key string) []byte {
	data, err := base64.StdEncoding.DecodeString(vc.GetString(key))
	if err != nil {
		return nil
	}
	return data
}

// GetArray accepts both a YAML list and a comma separated string.
func (vc *Viper) GetArray(key string) []string {
	var items []string
	switch raw := vc.get(key).(type) {
	case nil:
		return nil
	case string:
		items = strings.Split(raw, ",")
	default:
		items = cast.ToStringSlice(raw)
	}

	return lo.Compact(lo.Map(items, func(s string, _ int) string {
		return strings.TrimSpace(s)
	}))
}

func (vc *Viper) Close() error {
	return nil
}
