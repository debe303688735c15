package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/tienda/internal/config"
	"github.com/example/tienda/internal/middleware"
	"github.com/example/tienda/internal/models"
	"github.com/example/tienda/internal/services"
	"github.com/example/tienda/internal/store"
	"github.com/example/tienda/internal/utils"
)

const testSecret = "test-secret"

type memPaymentStore struct {
	payments map[uuid.UUID]models.Payment
}

func newMemPaymentStore() *memPaymentStore {
	return &memPaymentStore{payments: make(map[uuid.UUID]models.Payment)}
}

func (s *memPaymentStore) Create(_ context.Context, p *models.Payment) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	s.payments[p.ID] = *p
	return nil
}

func (s *memPaymentStore) Save(_ context.Context, p *models.Payment) error {
	s.payments[p.ID] = *p
	return nil
}

func (s *memPaymentStore) FindByID(_ context.Context, id uuid.UUID) (*models.Payment, error) {
	p, ok := s.payments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := p
	return &copied, nil
}

func (s *memPaymentStore) FindByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, int64, error) {
	return s.filter(func(p models.Payment) bool { return p.UserID == userID }, limit, offset)
}

func (s *memPaymentStore) FindByOrder(_ context.Context, orderRef string, limit, offset int) ([]models.Payment, int64, error) {
	return s.filter(func(p models.Payment) bool { return p.OrderRef == orderRef }, limit, offset)
}

func (s *memPaymentStore) filter(keep func(models.Payment) bool, limit, offset int) ([]models.Payment, int64, error) {
	var matched []models.Payment
	for _, p := range s.payments {
		if keep(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (s *memPaymentStore) Stats(_ context.Context) (*store.PaymentStats, error) {
	stats := &store.PaymentStats{}
	for _, p := range s.payments {
		stats.Total++
		stats.AmountTotal += p.Amount
		switch p.State {
		case models.PaymentStateCompleted:
			stats.Completed++
			stats.AmountCompleted += p.Amount
		case models.PaymentStatePending:
			stats.Pending++
		case models.PaymentStateFailed:
			stats.Failed++
		}
	}
	return stats, nil
}

type staticDecider struct {
	approve bool
}

func (d staticDecider) Approve(string) bool { return d.approve }

type noopNotifier struct {
	calls int
}

func (n *noopNotifier) NotifyPayment(context.Context, string, string) error {
	n.calls++
	return nil
}

func newTestApp(st store.PaymentStore, approve bool) *fiber.App {
	cfg := &config.Config{JWTSecret: testSecret}

	svc := services.NewPaymentService(st, staticDecider{approve: approve}, &noopNotifier{})
	h := NewPaymentHandler(svc)

	app := fiber.New()

	pagos := app.Group("/api/pagos")
	pagos.Get("/pedido/:idPedido", h.PorPedido)

	pagosAuth := pagos.Group("", middleware.AuthMiddleware(cfg))
	pagosAuth.Post("/procesar", h.Procesar)
	pagosAuth.Get("/mis-pagos", h.MisPagos)
	pagosAuth.Get("/estadisticas", h.Estadisticas)
	pagosAuth.Get("/:id", h.Obtener)
	pagosAuth.Put("/:id", h.Actualizar)

	return app
}

func bearerToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	token, err := utils.GenerateToken(testSecret, userID, "customer", time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	return "Bearer " + token
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestProcesarApproved(t *testing.T) {
	st := newMemPaymentStore()
	app := newTestApp(st, true)
	userID := uuid.New()

	body := `{"idPedido":42,"monto":150.5,"numTarjeta":"4111111111111111","cvv":"123","vencimiento":"12/30","nombreTitular":"Ana Gomez","email":"ana@example.com"}`
	req := jsonRequest(http.MethodPost, "/api/pagos/procesar", body)
	req.Header.Set("Authorization", bearerToken(t, userID))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}

	got := decodeBody(t, resp)
	if got["exito"] != true {
		t.Errorf("exito = %v, want true", got["exito"])
	}
	if got["estado"] != models.PaymentStateCompleted {
		t.Errorf("estado = %v, want %q", got["estado"], models.PaymentStateCompleted)
	}
	metodo, _ := got["metodo"].(map[string]any)
	if metodo["ult4"] != "1111" {
		t.Errorf("metodo.ult4 = %v, want 1111", metodo["ult4"])
	}
	ref, _ := got["referencia"].(string)
	if !strings.HasPrefix(ref, "pay_") {
		t.Errorf("referencia = %q, want pay_ prefix", ref)
	}
	if got["idPedido"] != "42" {
		t.Errorf("idPedido = %v, want 42", got["idPedido"])
	}
	if len(st.payments) != 1 {
		t.Errorf("stored payments = %d, want 1", len(st.payments))
	}
}

func TestProcesarValidationPersistsNothing(t *testing.T) {
	st := newMemPaymentStore()
	app := newTestApp(st, true)

	body := `{"monto":150.5,"numTarjeta":"4111111111111111","cvv":"123","vencimiento":"12/30","nombreTitular":"Ana Gomez"}`
	req := jsonRequest(http.MethodPost, "/api/pagos/procesar", body)
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	got := decodeBody(t, resp)
	if _, ok := got["err"]; !ok {
		t.Errorf("response missing err field: %v", got)
	}
	if len(st.payments) != 0 {
		t.Errorf("stored payments = %d, want 0", len(st.payments))
	}
}

func TestProcesarDeclinedPersistsFailedPayment(t *testing.T) {
	st := newMemPaymentStore()
	app := newTestApp(st, false)

	body := `{"idPedido":7,"monto":99.9,"numTarjeta":"4012888888881881","cvv":"123","vencimiento":"12/30","nombreTitular":"Ana Gomez"}`
	req := jsonRequest(http.MethodPost, "/api/pagos/procesar", body)
	req.Header.Set("Authorization", bearerToken(t, uuid.New()))

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", resp.StatusCode)
	}

	got := decodeBody(t, resp)
	if got["exito"] != false {
		t.Errorf("exito = %v, want false", got["exito"])
	}
	if got["id"] == nil {
		t.Error("declined response should carry the payment id")
	}

	if len(st.payments) != 1 {
		t.Fatalf("stored payments = %d, want 1", len(st.payments))
	}
	for _, p := range st.payments {
		if p.State != models.PaymentStateFailed {
			t.Errorf("state = %q, want %q", p.State, models.PaymentStateFailed)
		}
	}
}

func TestProcesarRequiresAuth(t *testing.T) {
	app := newTestApp(newMemPaymentStore(), true)

	req := jsonRequest(http.MethodPost, "/api/pagos/procesar", `{}`)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
}

func TestObtenerOwnership(t *testing.T) {
	st := newMemPaymentStore()
	app := newTestApp(st, true)

	owner := uuid.New()
	other := uuid.New()
	payment := models.Payment{
		OrderRef: "42",
		UserID:   owner,
		Amount:   10,
		State:    models.PaymentStatePending,
	}
	if err := st.Create(context.Background(), &payment); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/pagos/"+payment.ID.String(), nil)
	req.Header.Set("Authorization", bearerToken(t, other))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusForbidden {
		t.Fatalf("foreign payment status = %d, want 403", resp.StatusCode)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/pagos/"+uuid.NewString(), nil)
	req.Header.Set("Authorization", bearerToken(t, owner))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("missing payment status = %d, want 404", resp.StatusCode)
	}
}

func TestPorPedidoIsPublic(t *testing.T) {
	st := newMemPaymentStore()
	app := newTestApp(st, true)

	for i := 0; i < 2; i++ {
		p := models.Payment{OrderRef: "42", UserID: uuid.New(), Amount: 5, State: models.PaymentStateFailed}
		if err := st.Create(context.Background(), &p); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/pagos/pedido/42", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decodeBody(t, resp)
	datos, _ := got["datos"].([]any)
	if len(datos) != 2 {
		t.Errorf("datos length = %d, want 2", len(datos))
	}
	paginacion, _ := got["paginacion"].(map[string]any)
	if paginacion["total"] != float64(2) {
		t.Errorf("paginacion.total = %v, want 2", paginacion["total"])
	}
}

func TestActualizarManualCompletion(t *testing.T) {
	st := newMemPaymentStore()
	app := newTestApp(st, true)

	owner := uuid.New()
	payment := models.Payment{
		OrderRef: "42",
		UserID:   owner,
		Amount:   30,
		State:    models.PaymentStatePending,
	}
	if err := st.Create(context.Background(), &payment); err != nil {
		t.Fatalf("Create: %v", err)
	}

	req := jsonRequest(http.MethodPut, "/api/pagos/"+payment.ID.String(), `{"estado":"completado"}`)
	req.Header.Set("Authorization", bearerToken(t, owner))
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	got := decodeBody(t, resp)
	if got["pagado"] != true {
		t.Errorf("pagado = %v, want true", got["pagado"])
	}

	stored, err := st.FindByID(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if stored.PaidAt == nil || stored.Reference == "" {
		t.Errorf("completion stamp missing: paidAt=%v reference=%q", stored.PaidAt, stored.Reference)
	}

	req = jsonRequest(http.MethodPut, "/api/pagos/"+payment.ID.String(), `{"estado":"otro"}`)
	req.Header.Set("Authorization", bearerToken(t, owner))
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("invalid state status = %d, want 400", resp.StatusCode)
	}
}
