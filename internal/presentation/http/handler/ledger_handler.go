package handler

import (
	"fmt"
	"io"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/posledger-api/internal/application/service"
	"github.com/sangkips/posledger-api/internal/domain/entity"
	"github.com/sangkips/posledger-api/internal/presentation/http/dto/response"
	"github.com/sangkips/posledger-api/pkg/export"
)

// LedgerHandler handles customer ledger HTTP requests
type LedgerHandler struct {
	ledgerService *service.LedgerService
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerService *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// Get handles getting a customer's projected ledger
func (h *LedgerHandler) Get(c *gin.Context) {
	ledger, err := h.ledgerService.GetCustomerLedger(c.Request.Context(), c.Param("key"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Ledger retrieved successfully", ledger)
}

// Export handles downloading a customer's ledger as an Excel statement
func (h *LedgerHandler) Export(c *gin.Context) {
	customerKey := entity.NormalizeCustomerKey(c.Param("key"))

	ledger, err := h.ledgerService.GetCustomerLedger(c.Request.Context(), customerKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	f, err := export.CustomerStatement(customerKey, ledger)
	if err != nil {
		response.InternalServerError(c, "Failed to build statement")
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "statement-"+customerKey+".xlsx"))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("Warning: failed to stream statement for %q: %v", customerKey, err)
	}
}

// Stream handles a Server-Sent Events subscription to a customer's ledger.
// The client receives the current projection immediately, then a fresh
// projection every time the ledger changes.
func (h *LedgerHandler) Stream(c *gin.Context) {
	ctx := c.Request.Context()
	customerKey := c.Param("key")

	updates := make(chan []entity.Receipt, 4)
	unsubscribe, err := h.ledgerService.WatchLedger(ctx, customerKey, func(ledger []entity.Receipt) {
		select {
		case updates <- ledger:
		default:
			// A slow client skips intermediate projections; the next
			// delivered one is always the freshest.
		}
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	defer unsubscribe()

	initial, err := h.ledgerService.GetCustomerLedger(ctx, customerKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.SSEvent("ledger", initial)
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case ledger := <-updates:
			c.SSEvent("ledger", ledger)
			return true
		case <-ctx.Done():
			return false
		}
	})
}
