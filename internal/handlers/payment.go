package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/tienda/internal/middleware"
	"github.com/example/tienda/internal/models"
	"github.com/example/tienda/internal/services"
	"github.com/example/tienda/internal/utils"
)

// PaymentHandler manages the payments API. Endpoint paths and JSON keys keep
// the service's published Spanish contract.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type processPaymentRequest struct {
	IDPedido      json.Number `json:"idPedido"`
	Monto         float64     `json:"monto"`
	NumTarjeta    string      `json:"numTarjeta"`
	CVV           string      `json:"cvv"`
	Vencimiento   string      `json:"vencimiento"`
	NombreTitular string      `json:"nombreTitular"`
	Email         string      `json:"email"`
}

// Procesar authorizes a card charge. A decline is still a decision: the
// failed payment is persisted and reported with 402, distinct from the 400
// validation failures that persist nothing.
func (h *PaymentHandler) Procesar(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req processPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": "invalid request body"})
	}

	payment, err := h.payments.Authorize(c.Context(), userID, services.AuthorizeRequest{
		OrderRef:   req.IDPedido.String(),
		Amount:     req.Monto,
		CardNumber: req.NumTarjeta,
		CVV:        req.CVV,
		Expiry:     req.Vencimiento,
		HolderName: req.NombreTitular,
		Email:      req.Email,
	})
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": vErr.Msg})
		}
		var decline *services.DeclineError
		if errors.As(err, &decline) {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"exito":  false,
				"error":  "card declined",
				"motivo": "insufficient funds or incorrect card data",
				"id":     decline.Payment.ID,
			})
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"exito":  true,
		"id":     payment.ID,
		"monto":  payment.Amount,
		"estado": payment.State,
		"metodo": fiber.Map{
			"ult4":    payment.Last4,
			"marca":   payment.CardBrand,
			"titular": payment.HolderName,
		},
		"referencia": payment.Reference,
		"fechaPago":  payment.PaidAt,
		"idPedido":   payment.OrderRef,
	})
}

// MisPagos returns the caller's payment history, paginated.
func (h *PaymentHandler) MisPagos(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	pg := utils.ParsePagination(c)
	payments, total, err := h.payments.ListByUser(c.Context(), userID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	datos := make([]fiber.Map, 0, len(payments))
	for _, p := range payments {
		datos = append(datos, fiber.Map{
			"id":     p.ID,
			"monto":  p.Amount,
			"estado": p.State,
			"metodo": fiber.Map{
				"ult4":    p.Last4,
				"marca":   p.CardBrand,
				"titular": p.HolderName,
			},
			"descripcion": fmt.Sprintf("Pago para pedido #%s", p.OrderRef),
			"fecha":       p.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"datos":      datos,
		"paginacion": paginationEnvelope(total, pg),
	})
}

// Obtener returns one payment. The ownership check runs after the existence
// check, so a non-owner gets 403, not 404.
func (h *PaymentHandler) Obtener(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": "invalid id"})
	}

	payment, err := h.payments.GetForUser(c.Context(), userID, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrPaymentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"err": "payment not found"})
		case errors.Is(err, services.ErrNotOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"err": "not authorized"})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"id":     payment.ID,
		"monto":  payment.Amount,
		"estado": payment.State,
		"metodo": fiber.Map{
			"ult4":  payment.Last4,
			"marca": payment.CardBrand,
		},
		"descripcion": fmt.Sprintf("Pago para pedido #%s", payment.OrderRef),
		"pagado":      payment.State == models.PaymentStateCompleted,
		"referencia":  payment.Reference,
		"fecha":       payment.CreatedAt,
	})
}

// PorPedido returns all payments recorded against an order reference.
// Unauthenticated by contract: an intentional public read.
func (h *PaymentHandler) PorPedido(c *fiber.Ctx) error {
	orderRef := c.Params("idPedido")

	pg := utils.ParsePagination(c)
	payments, total, err := h.payments.ListByOrder(c.Context(), orderRef, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}

	datos := make([]fiber.Map, 0, len(payments))
	for _, p := range payments {
		datos = append(datos, fiber.Map{
			"id":     p.ID,
			"monto":  p.Amount,
			"estado": p.State,
			"metodo": fiber.Map{
				"ult4":  p.Last4,
				"marca": p.CardBrand,
			},
			"fecha": p.CreatedAt,
		})
	}

	return c.JSON(fiber.Map{
		"datos":      datos,
		"paginacion": paginationEnvelope(total, pg),
	})
}

// Estadisticas aggregates counts, amount sums and rates over all payments.
func (h *PaymentHandler) Estadisticas(c *fiber.Ctx) error {
	stats, err := h.payments.Stats(c.Context())
	if err != nil {
		return err
	}

	successRate := 0.0
	avgAmount := 0.0
	if stats.Total > 0 {
		successRate = float64(stats.Completed) / float64(stats.Total) * 100
		avgAmount = stats.AmountTotal / float64(stats.Total)
	}

	return c.JSON(fiber.Map{
		"resumen": fiber.Map{
			"totalPagos":  stats.Total,
			"completados": stats.Completed,
			"pendientes":  stats.Pending,
			"fallidos":    stats.Failed,
		},
		"montos": fiber.Map{
			"total":      stats.AmountTotal,
			"completado": stats.AmountCompleted,
		},
		"metricas": fiber.Map{
			"tasaExito":   fmt.Sprintf("%.2f%%", successRate),
			"tasaRechazo": fmt.Sprintf("%.2f%%", 100-successRate),
			"promTrans":   fmt.Sprintf("%.2f", avgAmount),
		},
	})
}

type updatePaymentRequest struct {
	Estado string `json:"estado"`
}

// Actualizar is the manual status edit: the second write path into the
// payment state machine, used for reconciliation.
func (h *PaymentHandler) Actualizar(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": "invalid id"})
	}

	var req updatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": "invalid request body"})
	}

	payment, err := h.payments.UpdateStatus(c.Context(), userID, id, req.Estado)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.As(err, &vErr):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"err": vErr.Msg})
		case errors.Is(err, services.ErrPaymentNotFound):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"err": "payment not found"})
		case errors.Is(err, services.ErrNotOwner):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"err": "not authorized"})
		}
		return err
	}

	return c.JSON(fiber.Map{
		"id":     payment.ID,
		"monto":  payment.Amount,
		"estado": payment.State,
		"metodo": fiber.Map{
			"ult4":  payment.Last4,
			"marca": payment.CardBrand,
		},
		"pagado":      payment.State == models.PaymentStateCompleted,
		"actualizado": time.Now().UTC(),
	})
}

func paginationEnvelope(total int64, pg utils.Pagination) fiber.Map {
	totalPages := int64(0)
	if pg.Limit > 0 {
		totalPages = int64(math.Ceil(float64(total) / float64(pg.Limit)))
	}
	return fiber.Map{
		"total":        total,
		"pagina":       pg.Page,
		"limite":       pg.Limit,
		"totalPaginas": totalPages,
	}
}
