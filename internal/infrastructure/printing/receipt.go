package printing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ReceiptPaperWidthMM is the width of the generated receipt page
const ReceiptPaperWidthMM = 80

const receiptMarginMM = 4

// ReceiptData is everything printed on an order receipt
type ReceiptData struct {
	OrderID       uuid.UUID
	Number        string
	Status        string
	PlacedAt      time.Time
	CustomerName  string
	CustomerEmail string
	Lines         []ReceiptLine
	Total         decimal.Decimal
}

// ReceiptLine is one purchased product on a receipt
type ReceiptLine struct {
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	Subtotal    decimal.Decimal
}

var receiptStatusText = map[string]string{
	"PENDING":   "Pendente",
	"CONFIRMED": "Confirmado",
	"SHIPPED":   "Enviado",
	"DELIVERED": "Entregue",
	"CANCELLED": "Cancelado",
}

// FormatBRL formats an amount as Brazilian reais, e.g. "R$ 1.234,50"
func FormatBRL(amount decimal.Decimal) string {
	cents := amount.Round(2).Shift(2).IntPart()
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%sR$ %s,%02d", sign, message.NewPrinter(language.BrazilianPortuguese).Sprintf("%d", cents/100), cents%100)
}

func formatReceiptDate(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

// titleName capitalizes each word; a Caser keeps state, so one is built per call
func titleName(name string) string {
	return cases.Title(language.BrazilianPortuguese).String(name)
}

func receiptStatus(status string) string {
	if text, ok := receiptStatusText[status]; ok {
		return text
	}
	return status
}

var receiptFuncs = template.FuncMap{
	"brl":    FormatBRL,
	"date":   formatReceiptDate,
	"status": receiptStatus,
	"title":  titleName,
}

const receiptTemplate = `<!DOCTYPE html>
<html lang="pt-BR">
<head>
<meta charset="UTF-8">
<title>Pedido {{.Number}}</title>
<style>
body { font-family: "DejaVu Sans", Arial, sans-serif; font-size: 11px; margin: 0; color: #111; }
h1 { font-size: 14px; text-align: center; margin: 0 0 6px; }
.meta, .total { margin: 6px 0; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 2px 0; text-align: left; }
td.num, th.num { text-align: right; }
tr.line td { border-bottom: 1px dashed #999; }
.total { font-weight: bold; text-align: right; font-size: 13px; }
</style>
</head>
<body>
<h1>Comprovante do pedido {{.Number}}</h1>
<div class="meta">
<div>Data: {{date .PlacedAt}}</div>
<div>Situação: {{status .Status}}</div>
<div>Cliente: {{title .CustomerName}} &lt;{{.CustomerEmail}}&gt;</div>
</div>
<table>
<thead><tr><th>Produto</th><th class="num">Qtd</th><th class="num">Unit.</th><th class="num">Subtotal</th></tr></thead>
<tbody>
{{- range .Lines}}
<tr class="line"><td>{{.ProductName}}</td><td class="num">{{.Quantity}}</td><td class="num">{{brl .UnitPrice}}</td><td class="num">{{brl .Subtotal}}</td></tr>
{{- end}}
</tbody>
</table>
<div class="total">Total: {{brl .Total}}</div>
</body>
</html>
`

// ReceiptRenderer renders order receipts as HTML and, when a Printer is
// configured, as PDF
type ReceiptRenderer struct {
	tmpl    *template.Template
	printer Printer
	log     *zap.Logger
}

// NewReceiptRenderer creates a ReceiptRenderer; printer may be nil
func NewReceiptRenderer(printer Printer, log *zap.Logger) *ReceiptRenderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReceiptRenderer{
		tmpl:    template.Must(template.New("receipt").Funcs(receiptFuncs).Parse(receiptTemplate)),
		printer: printer,
		log:     log,
	}
}

// RenderHTML renders the receipt as a standalone HTML document
func (r *ReceiptRenderer) RenderHTML(_ context.Context, data *ReceiptData) ([]byte, error) {
	if data == nil {
		return nil, errors.New("printing: nil receipt")
	}
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("receipt template: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF prints the receipt HTML on an 80 mm roll
func (r *ReceiptRenderer) RenderPDF(ctx context.Context, data *ReceiptData) ([]byte, error) {
	if r.printer == nil {
		return nil, ErrRendererUnavailable
	}
	doc, err := r.RenderHTML(ctx, data)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pdf, err := r.printer.Print(ctx, doc, Page{WidthMM: ReceiptPaperWidthMM, MarginMM: receiptMarginMM})
	if err != nil {
		return nil, err
	}

	r.log.Info("Receipt rendered",
		zap.String("order_id", data.OrderID.String()),
		zap.Int("bytes", len(pdf)),
		zap.Duration("duration", time.Since(start)))
	return pdf, nil
}

// Close releases the printer
func (r *ReceiptRenderer) Close() error {
	if r.printer == nil {
		return nil
	}
	return r.printer.Close()
}
