// Package pdf renders invoices and credit notes.
package pdf

import (
	"context"
	"fmt"
	"strings"

	"github.com/AdrianPopi/acont/internal/config"
	"github.com/gosimple/slug"
	"go.uber.org/zap"
)

type Provider interface {
	Render(ctx context.Context, doc Document) ([]byte, error)
}

func New(cfg config.Config, log *zap.Logger) Provider {
	return &MarotoProvider{
		logoPath: strings.TrimSpace(cfg.Seller.LogoPath),
		log:      log.Named("pdf.provider"),
	}
}

// Filename builds a download name such as "facture-000012-atelier-dupont.pdf".
func Filename(doc Document) string {
	l := labelsFor(doc.Language)
	name := slug.MakeLang(fmt.Sprintf("%s %s %s", l.title(doc.Kind), doc.Number, doc.Client.Name), slugLang(doc.Language))
	if name == "" {
		name = "document"
	}
	return name + ".pdf"
}

func slugLang(lang string) string {
	switch lang {
	case "nl":
		return "nl"
	case "en":
		return "en"
	default:
		return "fr"
	}
}
