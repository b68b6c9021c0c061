package api

import (
	"log"
	"net/http"

	"github.com/clinicdesk/clinic-server/service/appointment"
	"github.com/clinicdesk/clinic-server/service/notification"
	"github.com/clinicdesk/clinic-server/service/payment"
	"github.com/clinicdesk/clinic-server/service/slot"
	"github.com/clinicdesk/clinic-server/service/user"
	"github.com/clinicdesk/clinic-server/service/ws"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	hub := ws.NewHub()
	notifier := notification.NewService(s.db)

	engine := appointment.NewEngine(s.db).
		WithNotifier(notifier).
		WithBroadcaster(hub)

	payOSClient := payment.NewPayOSClient()
	paymentService := payment.NewService(s.db, payOSClient).WithNotifier(notifier)

	userHandler := user.NewHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	slotHandler := slot.NewSlotHandler(s.db)
	slotHandler.RegisterRoutes(subrouter)

	appointmentHandler := appointment.NewAppointmentHandler(s.db, engine)
	appointmentHandler.RegisterRoutes(subrouter)

	paymentHandler := payment.NewPaymentHandler(s.db, paymentService, payOSClient)
	paymentHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	wsHandler := ws.NewWebSocketHandler(hub)
	wsHandler.RegisterRoutes(router)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}
