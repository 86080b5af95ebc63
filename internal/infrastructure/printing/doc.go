// Package printing renders order receipts.
//
// Receipts are produced as HTML from an html/template with pt-BR money and
// date formatting. PDF output prints that HTML through headless Chrome via
// chromedp; when no Chrome binary is available the renderer reports
// ErrRendererUnavailable and callers may still serve the HTML form.
package printing
