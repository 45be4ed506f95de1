package config

// daemon configuration, read from TOML

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/disintegration/imaging"

	"asciirle/lib/artstore"
	"asciirle/lib/asciiconv"
	fl "asciirle/lib/filelogger"
	"asciirle/lib/glyph"
	"asciirle/lib/hashtools"
	"asciirle/lib/imgsource"
	"asciirle/lib/logx"
)

// Duration is time.Duration readable from TOML strings like "90s".
type Duration time.Duration

func (d *Duration) UnmarshalText(b []byte) error {
	x, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(x)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d Duration) D() time.Duration { return time.Duration(d) }

type ServerConfig struct {
	Bind            string   `toml:"bind"`
	MaxConns        int      `toml:"max_conns"` // 0 means unlimited
	Gzip            bool     `toml:"gzip"`
	CORSOrigins     []string `toml:"cors_origins"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	ETagKey         string   `toml:"etag_key"` // 64 hex digits, random if empty
	JSONIndent      string   `toml:"json_indent"`
}

type LogConfig struct {
	Level logx.Level  `toml:"level"`
	Color fl.UseColor `toml:"color"`
}

type ConvertConfig struct {
	DefaultWidth      int        `toml:"default_width"`
	MaxWidth          int        `toml:"max_width"`
	Mode              glyph.Mode `toml:"mode"`
	Alphabet          string     `toml:"alphabet"`
	ThresholdAlphabet string     `toml:"threshold_alphabet"`
	MaxDecodedSize    int        `toml:"max_decoded_size"`
	MaxTextSize       int64      `toml:"max_text_size"`
}

type UploadConfig struct {
	MaxFileSize  int64    `toml:"max_file_size"`
	MaxWidth     int      `toml:"max_width"`
	MaxHeight    int      `toml:"max_height"`
	MaxPixels    int      `toml:"max_pixels"`
	AllowedTypes []string `toml:"allowed_types"`
	Filter       string   `toml:"filter"`
}

type StoreConfig struct {
	Path          string             `toml:"path"` // empty disables storage
	Hash          hashtools.HashType `toml:"hash"`
	MaxAge        Duration           `toml:"max_age"` // 0 keeps forever
	PruneInterval Duration           `toml:"prune_interval"`
}

type Config struct {
	Server  ServerConfig  `toml:"server"`
	Log     LogConfig     `toml:"log"`
	Convert ConvertConfig `toml:"convert"`
	Upload  UploadConfig  `toml:"upload"`
	Store   StoreConfig   `toml:"store"`
}

var filters = map[string]imaging.ResampleFilter{
	"nearest":    imaging.NearestNeighbor,
	"box":        imaging.Box,
	"linear":     imaging.Linear,
	"catmullrom": imaging.CatmullRom,
	"lanczos":    imaging.Lanczos,
}

func Default() Config {
	ac := asciiconv.DefaultConfig
	ic := imgsource.DefaultConfig
	return Config{
		Server: ServerConfig{
			Bind:            "127.0.0.1:5000",
			MaxConns:        256,
			Gzip:            true,
			ReadTimeout:     Duration(time.Minute),
			WriteTimeout:    Duration(time.Minute),
			ShutdownTimeout: Duration(10 * time.Second),
		},
		Log: LogConfig{
			Level: logx.INFO,
			Color: fl.ColorAuto,
		},
		Convert: ConvertConfig{
			DefaultWidth:      ac.DefaultWidth,
			MaxWidth:          ac.MaxWidth,
			Mode:              ac.Mode,
			Alphabet:          ac.Alphabet,
			ThresholdAlphabet: ac.ThresholdAlphabet,
			MaxDecodedSize:    ac.MaxDecodedSize,
			MaxTextSize:       4 << 20,
		},
		Upload: UploadConfig{
			MaxFileSize:  ic.MaxFileSize,
			MaxWidth:     ic.MaxWidth,
			MaxHeight:    ic.MaxHeight,
			MaxPixels:    ic.MaxPixels,
			AllowedTypes: []string{"image/*"},
			Filter:       "lanczos",
		},
		Store: StoreConfig{
			Path:          "_asciirle",
			MaxAge:        Duration(24 * time.Hour),
			PruneInterval: Duration(time.Hour),
		},
	}
}

// Parse decodes TOML text over defaults.
func Parse(s string) (Config, error) {
	cfg := Default()
	md, err := toml.Decode(s, &cfg)
	if err != nil {
		return cfg, err
	}
	return cfg, finish(&cfg, md)
}

// Load reads TOML file over defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("config %q: %v", path, err)
	}
	if err = finish(&cfg, md); err != nil {
		return cfg, fmt.Errorf("config %q: %v", path, err)
	}
	return cfg, nil
}

func finish(cfg *Config, md toml.MetaData) error {
	if und := md.Undecoded(); len(und) != 0 {
		keys := make([]string, len(und))
		for i, k := range und {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return cfg.Validate()
}

func (cfg *Config) Validate() error {
	if cfg.Server.Bind == "" {
		return errors.New("server.bind is empty")
	}
	if cfg.Server.MaxConns < 0 {
		return errors.New("server.max_conns is negative")
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}
	if _, err := cfg.ETagKey(); err != nil {
		return err
	}
	if _, ok := filters[strings.ToLower(cfg.Upload.Filter)]; !ok {
		return fmt.Errorf("upload.filter: unknown filter %q", cfg.Upload.Filter)
	}
	if cfg.Upload.MaxFileSize <= 0 {
		return errors.New("upload.max_file_size must be positive")
	}
	if cfg.Convert.MaxTextSize <= 0 {
		return errors.New("convert.max_text_size must be positive")
	}
	if cfg.Store.MaxAge < 0 || cfg.Store.PruneInterval < 0 {
		return errors.New("store durations must not be negative")
	}
	// alphabets and widths are checked by building converter
	if _, err := asciiconv.New(cfg.AsciiConv(), logx.NopLoggerX{}); err != nil {
		return fmt.Errorf("convert: %v", err)
	}
	return nil
}

// ETagKey returns decoded server.etag_key, nil if unset.
func (cfg *Config) ETagKey() ([]byte, error) {
	if cfg.Server.ETagKey == "" {
		return nil, nil
	}
	k, err := hex.DecodeString(cfg.Server.ETagKey)
	if err != nil || len(k) != 32 {
		return nil, errors.New("server.etag_key must be 64 hex digits")
	}
	return k, nil
}

func (cfg *Config) AsciiConv() asciiconv.Config {
	ic := imgsource.DefaultConfig
	ic.MaxFileSize = cfg.Upload.MaxFileSize
	ic.MaxWidth = cfg.Upload.MaxWidth
	ic.MaxHeight = cfg.Upload.MaxHeight
	ic.MaxPixels = cfg.Upload.MaxPixels
	if f, ok := filters[strings.ToLower(cfg.Upload.Filter)]; ok {
		ic.Filter = f
	}
	return asciiconv.Config{
		DefaultWidth:      cfg.Convert.DefaultWidth,
		MaxWidth:          cfg.Convert.MaxWidth,
		Mode:              cfg.Convert.Mode,
		Alphabet:          cfg.Convert.Alphabet,
		ThresholdAlphabet: cfg.Convert.ThresholdAlphabet,
		MaxDecodedSize:    cfg.Convert.MaxDecodedSize,
		Image:             ic,
	}
}

// ArtStore returns store config, ok is false when storage is disabled.
func (cfg *Config) ArtStore() (c artstore.Config, ok bool) {
	if cfg.Store.Path == "" {
		return
	}
	return artstore.Config{Path: cfg.Store.Path, HashType: cfg.Store.Hash}, true
}
