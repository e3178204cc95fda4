package services

import (
	"bytes"
	"fmt"
	"net/http"

	"smartdalali_backend/internal/models"
	"smartdalali_backend/internal/repositories"
	"smartdalali_backend/pkg/apperrors"

	"github.com/go-pdf/fpdf"
)

// ReceiptService renders PDF receipts for completed payments.
type ReceiptService interface {
	// GenerateReceipt returns the PDF bytes and the suggested filename.
	// Only completed payments have receipts.
	GenerateReceipt(paymentID string) ([]byte, string, error)
}

type receiptService struct {
	payments     repositories.PaymentRepository
	companyName  string
	companyEmail string
}

func NewReceiptService(payments repositories.PaymentRepository, companyName, companyEmail string) ReceiptService {
	return &receiptService{
		payments:     payments,
		companyName:  companyName,
		companyEmail: companyEmail,
	}
}

func (s *receiptService) GenerateReceipt(paymentID string) ([]byte, string, error) {
	payment, err := s.payments.FindByID(paymentID)
	if err != nil {
		if apperrors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, "", apperrors.ErrPaymentNotFound(err)
		}
		return nil, "", err
	}

	if payment.Status != models.PaymentStatusCompleted {
		return nil, "", apperrors.ErrInvalidStatus("payment", "Receipt is only available for completed payments")
	}

	pdfBytes, err := s.render(payment)
	if err != nil {
		return nil, "", apperrors.Wrap(err, apperrors.CodeInternalError, "payment", "Failed to generate receipt", http.StatusInternalServerError)
	}

	filename := fmt.Sprintf("receipt-%s.pdf", payment.ID)
	return pdfBytes, filename, nil
}

func (s *receiptService) render(payment *models.Payment) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 12, s.companyName, "", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, s.companyEmail, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Payment Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	rows := [][2]string{
		{"Receipt No", fmt.Sprintf("RCP-%s", payment.ID)},
		{"Date", payment.CreatedAt.Format("2006-01-02 15:04:05")},
		{"Transaction ID", payment.TransactionID},
		{"Payment Method", string(payment.Method)},
		{"Amount", fmt.Sprintf("TZS %s", payment.Amount.StringFixed(2))},
		{"Paid By", payment.User.DisplayName()},
	}
	if payment.Property != nil {
		rows = append(rows, [2]string{"Property", payment.Property.Title})
	}

	pdf.SetFont("Helvetica", "", 11)
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 8, row[0], "B", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(0, 8, row[1], "B", 1, "L", false, 0, "")
	}

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Thank you for your payment. Questions? Contact %s", s.companyEmail), "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
