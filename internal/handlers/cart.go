package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/tienda/internal/middleware"
	"github.com/example/tienda/internal/services"
)

// CartHandler manages the cart and the checkout/return flow.
type CartHandler struct {
	checkout *services.CheckoutService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(checkout *services.CheckoutService) *CartHandler {
	return &CartHandler{checkout: checkout}
}

// GetCart returns the caller's open cart with its recomputed total.
func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	items, err := h.checkout.Cart(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"items": items,
			"total": services.CartTotal(items),
		},
	})
}

type cartItemRequest struct {
	ProductID json.Number `json:"product_id"`
	Name      string      `json:"name"`
	Price     float64     `json:"price"`
	Quantity  int         `json:"quantity"`
}

// AddItem puts a product into the cart, merging quantities for repeats.
func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req cartItemRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	item, err := h.checkout.AddItem(c.Context(), userID, services.CartItemRequest{
		ProductID: req.ProductID.String(),
		Name:      req.Name,
		UnitPrice: req.Price,
		Quantity:  req.Quantity,
	})
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			return fiber.NewError(fiber.StatusBadRequest, vErr.Msg)
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// UpdateItem sets a cart line's quantity; zero removes the line.
func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateQuantityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.checkout.UpdateQuantity(c.Context(), userID, c.Params("id"), req.Quantity); err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			return fiber.NewError(fiber.StatusBadRequest, vErr.Msg)
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// RemoveItem drops a product from the cart.
func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	if err := h.checkout.RemoveItem(c.Context(), userID, c.Params("id")); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// Checkout snapshots the cart into a local order. The caller never learns
// about inventory-adjustment failures; the order's existence is the outcome.
func (h *CartHandler) Checkout(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	order, err := h.checkout.Checkout(c.Context(), userID)
	if err != nil {
		var vErr *services.ValidationError
		if errors.As(err, &vErr) {
			return fiber.NewError(fiber.StatusBadRequest, vErr.Msg)
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": order})
}

// ListOrders returns the caller's local order history.
func (h *CartHandler) ListOrders(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orders, err := h.checkout.Orders(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": orders})
}

// ReturnOrder accepts a return for a returnable order.
func (h *CartHandler) ReturnOrder(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	order, err := h.checkout.ReturnOrder(c.Context(), userID, orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			return fiber.NewError(fiber.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrCannotReturn):
			return fiber.NewError(fiber.StatusBadRequest, "order cannot be returned")
		}
		return err
	}

	return c.JSON(fiber.Map{"success": true, "data": order})
}
