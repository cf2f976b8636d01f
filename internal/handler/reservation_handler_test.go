package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"raffle-service/internal/handler"
	"raffle-service/internal/model"
	"raffle-service/internal/payment"
	"raffle-service/internal/service/mocks"
	apperrors "raffle-service/pkg/app_errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func setupReservationTestRouter(reservations *mocks.ReservationServiceMock, purchases *mocks.PurchaseServiceMock) *gin.Engine {
	router := newTestRouter()
	handler.NewReservationHandler(reservations, purchases).RegisterRoutes(router)
	return router
}

func reserveBody() map[string]interface{} {
	return map[string]interface{}{
		"buyer": map[string]string{
			"name":  "Maria Silva",
			"email": "maria@example.com",
		},
		"numbers":        []int{1, 2, 3},
		"payment_method": "pix",
	}
}

func TestCreateReservation(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		resID := uuid.New()
		reservation := &model.Reservation{
			ID: resID, RaffleID: 1, Numbers: []int{1, 2, 3},
			Status:    model.ReservationStatusPending,
			ExpiresAt: time.Now().UTC().Add(15 * time.Minute),
		}
		reservations.On("Reserve", mock.Anything, 1, mock.Anything, []int{1, 2, 3}).
			Return(reservation, nil).Once()
		purchases.On("Initiate", mock.Anything, resID, "pix").Return(
			&model.Purchase{ID: uuid.New(), ReservationID: resID, Amount: 30, Status: model.PurchaseStatusAwaitingPayment},
			&payment.PaymentIntent{PaymentID: "MOCK-1", Status: "pending", QRCode: "00020126..."},
			nil,
		).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/raffles/1/reservations", reserveBody())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.NotNil(t, body["reservation"])
		assert.NotNil(t, body["purchase"])
		assert.NotNil(t, body["payment"])
		reservations.AssertExpectations(t)
		purchases.AssertExpectations(t)
	})

	t.Run("Conflict - ReportsNumbers", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		reservations.On("Reserve", mock.Anything, 1, mock.Anything, []int{1, 2, 3}).
			Return(nil, apperrors.NewNumbersUnavailableError([]int{2, 3})).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/raffles/1/reservations", reserveBody())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decodeBody(t, w)
		assert.Len(t, body["conflicting_numbers"], 2)
		purchases.AssertNotCalled(t, "Initiate")
	})

	t.Run("GatewayDown - HoldSurvives", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		resID := uuid.New()
		reservations.On("Reserve", mock.Anything, 1, mock.Anything, []int{1, 2, 3}).
			Return(&model.Reservation{ID: resID, RaffleID: 1, Status: model.ReservationStatusPending}, nil).Once()
		purchases.On("Initiate", mock.Anything, resID, "pix").
			Return(nil, nil, apperrors.ErrGatewayUnavailable).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/raffles/1/reservations", reserveBody())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		// reservation created even though payment could not start
		assert.Equal(t, http.StatusCreated, w.Code)
		body := decodeBody(t, w)
		assert.NotNil(t, body["reservation"])
		assert.Nil(t, body["payment"])
	})

	t.Run("Failed - RaffleClosed", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		reservations.On("Reserve", mock.Anything, 1, mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrRaffleNotAcceptingReservations).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/raffles/1/reservations", reserveBody())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("Failed - PoolBusy", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		reservations.On("Reserve", mock.Anything, 1, mock.Anything, mock.Anything).
			Return(nil, apperrors.ErrPoolBusy).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/raffles/1/reservations", reserveBody())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["retryable"])
	})

	t.Run("Failed - MissingBuyer", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		req := createJSONHTTPRequest("POST", "/api/v1/raffles/1/reservations", map[string]interface{}{
			"numbers":        []int{1},
			"payment_method": "pix",
		})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		reservations.AssertNotCalled(t, "Reserve")
	})
}

func TestCancelReservation(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		resID := uuid.New()
		reservations.On("Cancel", mock.Anything, resID).Return(nil).Once()

		req := createJSONHTTPRequest("DELETE", "/api/v1/reservations/"+resID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("Failed - AlreadyConfirmed", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		resID := uuid.New()
		reservations.On("Cancel", mock.Anything, resID).Return(apperrors.ErrInvalidState).Once()

		req := createJSONHTTPRequest("DELETE", "/api/v1/reservations/"+resID.String(), nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Failed - BadUUID", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		req := createJSONHTTPRequest("DELETE", "/api/v1/reservations/not-a-uuid", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		reservations.AssertNotCalled(t, "Cancel")
	})
}

func TestInitiatePurchase(t *testing.T) {
	t.Run("Failed - GatewayDown", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		resID := uuid.New()
		purchases.On("Initiate", mock.Anything, resID, "pix").
			Return(nil, nil, apperrors.ErrGatewayUnavailable).Once()

		req := createJSONHTTPRequest("POST", "/api/v1/reservations/"+resID.String()+"/purchase",
			map[string]string{"payment_method": "pix"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadGateway, w.Code)
		body := decodeBody(t, w)
		assert.Equal(t, true, body["retryable"])
	})

	t.Run("Failed - UnsupportedMethod", func(t *testing.T) {
		reservations := &mocks.ReservationServiceMock{}
		purchases := &mocks.PurchaseServiceMock{}
		router := setupReservationTestRouter(reservations, purchases)

		resID := uuid.New()
		req := createJSONHTTPRequest("POST", "/api/v1/reservations/"+resID.String()+"/purchase",
			map[string]string{"payment_method": "cheque"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		purchases.AssertNotCalled(t, "Initiate")
	})
}
