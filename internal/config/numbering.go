package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync/atomic"

	"github.com/AdrianPopi/acont/internal/invoice/format"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SeriesConfig controls how one document type is numbered.
type SeriesConfig struct {
	Series   string `mapstructure:"series"`
	Template string `mapstructure:"template"`
}

type NumberingConfig struct {
	Invoice    SeriesConfig `mapstructure:"invoice"`
	CreditNote SeriesConfig `mapstructure:"creditNote"`
}

func DefaultNumberingConfig() NumberingConfig {
	return NumberingConfig{
		Invoice:    SeriesConfig{Series: "INV", Template: format.DefaultNumberTemplate},
		CreditNote: SeriesConfig{Series: "CN", Template: format.DefaultNumberTemplate},
	}
}

// For returns the series settings for a document type name.
func (c NumberingConfig) For(docType string) SeriesConfig {
	if docType == "credit_note" {
		return c.CreditNote
	}
	return c.Invoice
}

type NumberingHolder struct {
	current atomic.Value // holds NumberingConfig
}

// NewStaticNumberingHolder returns a holder that never reloads.
func NewStaticNumberingHolder(cfg NumberingConfig) *NumberingHolder {
	holder := &NumberingHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewNumberingHolder loads numbering.yml and keeps it hot-reloaded.
func NewNumberingHolder(cfg Config, log *zap.Logger) (*NumberingHolder, error) {
	log = log.Named("config.numbering")
	v := viper.New()

	if path := strings.TrimSpace(cfg.NumberingConfigPath); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("numbering")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/acont")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ACONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultNumberingConfig()
	v.SetDefault("numbering.invoice.series", defaults.Invoice.Series)
	v.SetDefault("numbering.invoice.template", defaults.Invoice.Template)
	v.SetDefault("numbering.creditNote.series", defaults.CreditNote.Series)
	v.SetDefault("numbering.creditNote.template", defaults.CreditNote.Template)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		fileLoaded = false
	}

	var numbering NumberingConfig
	if err := v.UnmarshalKey("numbering", &numbering); err != nil {
		return nil, err
	}
	if err := validateNumberingConfig(numbering); err != nil {
		return nil, err
	}

	holder := NewStaticNumberingHolder(numbering)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated NumberingConfig
		if err := v.UnmarshalKey("numbering", &updated); err != nil {
			log.Warn("reload failed", zap.Error(err))
			return
		}
		if err := validateNumberingConfig(updated); err != nil {
			log.Warn("invalid numbering config ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("numbering config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *NumberingHolder) Get() NumberingConfig {
	if h == nil {
		return DefaultNumberingConfig()
	}
	return h.current.Load().(NumberingConfig)
}

func validateNumberingConfig(cfg NumberingConfig) error {
	for name, series := range map[string]SeriesConfig{
		"invoice":    cfg.Invoice,
		"creditNote": cfg.CreditNote,
	} {
		if strings.TrimSpace(series.Series) == "" {
			return fmt.Errorf("numbering.%s.series cannot be empty", name)
		}
		if err := format.ValidateTemplate(series.Template); err != nil {
			return fmt.Errorf("numbering.%s.template: %w", name, err)
		}
	}
	return nil
}
