// server/internal/report/report.go
package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"sort"
	"strings"
	"time"

	"rl-express-api-server/internal/models"
)

// timestampOf orders history entries: completion time when present,
// otherwise creation time.
func timestampOf(d models.Delivery) time.Time {
	if d.CompletedAt != nil {
		return *d.CompletedAt
	}
	return d.CreatedAt
}

// FilterHistory narrows a status slice with a case-insensitive substring
// search over customer name and address, newest first.
func FilterHistory(deliveries []models.Delivery, query string) []models.Delivery {
	query = strings.ToLower(strings.TrimSpace(query))
	var out []models.Delivery
	for _, d := range deliveries {
		if query == "" ||
			strings.Contains(strings.ToLower(d.CustomerName), query) ||
			strings.Contains(strings.ToLower(d.Address.FullAddress), query) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return timestampOf(out[i]).After(timestampOf(out[j]))
	})
	return out
}

func formatDateTime(t time.Time) string {
	return t.Format("02/01/2006 15:04")
}

func formatShortDateTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("02/01 15:04")
}

func signedFlag(d models.Delivery) string {
	if d.Proof != nil && d.Proof.SignatureURL != "" {
		return "Sim"
	}
	return "Não"
}

// CSV renders the history export: one row per delivery with the receiver
// and signature details.
func CSV(deliveries []models.Delivery) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	header := []string{"ID", "Cliente", "Endereço", "Data/Hora", "Status", "Recebedor", "Documento", "Observações", "Assinado"}
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, d := range deliveries {
		receiverName, receiverDoc, notes := "", "", ""
		if d.Proof != nil {
			receiverName = d.Proof.ReceiverName
			receiverDoc = d.Proof.ReceiverDoc
			notes = d.Proof.Notes
		}
		row := []string{
			d.ID,
			d.CustomerName,
			d.Address.FullAddress,
			formatDateTime(timestampOf(d)),
			string(d.Status),
			receiverName,
			receiverDoc,
			notes,
			signedFlag(d),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// ExportFileName builds the download name for a history export.
func ExportFileName(status models.DeliveryStatus, extension string, now time.Time) string {
	return fmt.Sprintf("relatorio_entregas_%s_%s.%s", strings.ToLower(string(status)), now.Format("2006-01-02"), extension)
}

// ReceiptText renders the shareable proof-of-delivery receipt.
func ReceiptText(d models.Delivery) string {
	receiverName, receiverDoc, relationship, notes := "Não informado", "N/A", "N/A", "-"
	signed := "Não"
	if d.Proof != nil {
		if d.Proof.ReceiverName != "" {
			receiverName = d.Proof.ReceiverName
		}
		if d.Proof.ReceiverDoc != "" {
			receiverDoc = d.Proof.ReceiverDoc
		}
		if d.Proof.ReceiverRelationship != "" {
			relationship = d.Proof.ReceiverRelationship
		}
		if d.Proof.Notes != "" {
			notes = d.Proof.Notes
		}
		if d.Proof.SignatureURL != "" {
			signed = "Sim"
		}
	}
	var b strings.Builder
	b.WriteString("📦 *COMPROVANTE DE ENTREGA*\n")
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n", d.CustomerName)
	fmt.Fprintf(&b, "📍 *Endereço:* %s\n", d.Address.FullAddress)
	fmt.Fprintf(&b, "📅 *Data:* %s\n", formatShortDateTime(d.CompletedAt))
	b.WriteString("--------------------------------\n")
	fmt.Fprintf(&b, "📝 *Recebido por:* %s\n", receiverName)
	fmt.Fprintf(&b, "🤝 *Vínculo:* %s\n", relationship)
	fmt.Fprintf(&b, "🆔 *Documento:* %s\n", receiverDoc)
	fmt.Fprintf(&b, "✍️ *Assinado:* %s\n", signed)
	fmt.Fprintf(&b, "💬 *Observações:* %s", notes)
	return b.String()
}

// ReportText renders the bulk share payload for one history tab.
func ReportText(deliveries []models.Delivery, status models.DeliveryStatus, now time.Time) string {
	label := "CANCELADAS"
	if status == models.StatusCompleted {
		label = "CONCLUÍDAS"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 *RELATÓRIO DE ENTREGAS %s* - RL EXPRESS\n📅 Data: %s\n", label, now.Format("02/01/2006"))
	for i, d := range deliveries {
		fmt.Fprintf(&b, "\n*%d. %s* (%s)", i+1, d.CustomerName, formatDateTime(timestampOf(d)))
		if status == models.StatusCompleted && d.Proof != nil {
			name := d.Proof.ReceiverName
			if name == "" {
				name = "N/A"
			}
			fmt.Fprintf(&b, "\nRecebido por: %s", name)
			if d.Proof.ReceiverRelationship != "" {
				fmt.Fprintf(&b, " (%s)", d.Proof.ReceiverRelationship)
			}
			if d.Proof.ReceiverDoc != "" {
				fmt.Fprintf(&b, "\nDocumento: %s", d.Proof.ReceiverDoc)
			}
		}
	}
	fmt.Fprintf(&b, "\n\n🏁 *Total:* %d entregas.", len(deliveries))
	return b.String()
}
