// server/internal/report/excel.go
package report

import (
	"bytes"

	"rl-express-api-server/internal/models"

	"github.com/xuri/excelize/v2"
)

// Excel renders the history export as an xlsx workbook with the same
// columns as the CSV export.
func Excel(deliveries []models.Delivery) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Entregas"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	headers := []string{"ID", "Cliente", "Endereço", "Data/Hora", "Status", "Recebedor", "Documento", "Observações", "Assinado"}
	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err == nil {
		lastHeader, err := excelize.CoordinatesToCellName(len(headers), 1)
		if err != nil {
			return nil, err
		}
		_ = f.SetCellStyle(sheet, "A1", lastHeader, headerStyle)
	}

	for i, d := range deliveries {
		receiverName, receiverDoc, notes := "", "", ""
		if d.Proof != nil {
			receiverName = d.Proof.ReceiverName
			receiverDoc = d.Proof.ReceiverDoc
			notes = d.Proof.Notes
		}
		values := []interface{}{
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
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return nil, err
			}
		}
	}

	return f.WriteToBuffer()
}
