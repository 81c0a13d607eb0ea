package httpapi

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"hash/fnv"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Overland-East-Bay/carpool-api/internal/app/accounts"
	"github.com/Overland-East-Bay/carpool-api/internal/app/trips"
	"github.com/Overland-East-Bay/carpool-api/internal/domain"
	"github.com/Overland-East-Bay/carpool-api/internal/platform/logging"
	"github.com/Overland-East-Bay/carpool-api/internal/ports/out/idempotency"
)

const (
	maxBodyBytes = 1 << 20

	tripsRoute = "/api/trajets"

	idemLockStripes = 64
)

// Server implements the HTTP handlers on top of the application services.
type Server struct {
	Accounts *accounts.Service
	Trips    *trips.Service
	Idem     idempotency.Store

	logger *slog.Logger

	// idemLocks serialize requests sharing an Idempotency-Key within this process.
	idemLocks [idemLockStripes]sync.Mutex
}

// NewServer wires the handlers. idem may be nil, which disables Idempotency-Key support.
func NewServer(accountsSvc *accounts.Service, tripsSvc *trips.Service, idem idempotency.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Server{
		Accounts: accountsSvc,
		Trips:    tripsSvc,
		Idem:     idem,
		logger:   logger,
	}
}

func (s *Server) Signup(w http.ResponseWriter, r *http.Request) {
	var body signupRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Accounts.Signup(r.Context(), body.toInput())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, signupResponse{
		Token:     res.Token.Value,
		ExpiresAt: res.Token.ExpiresAt,
		User: signupUserDTO{
			ID:      string(res.Account.ID),
			Nom:     res.Account.LastName,
			Prenom:  res.Account.FirstName,
			Email:   res.Account.Email,
			Voiture: toVehicleDTO(res.Vehicle),
		},
	})
}

func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Accounts.Login(r.Context(), body.Email, body.Mdp)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     res.Token.Value,
		ExpiresAt: res.Token.ExpiresAt,
		Utilisateur: loginUserDTO{
			ID:          string(res.Account.ID),
			Nom:         res.Account.LastName,
			Prenom:      res.Account.FirstName,
			Telephone:   res.Account.Phone,
			Email:       res.Account.Email,
			EstConnecte: res.Account.Connected,
		},
	})
}

func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	var body logoutRequest
	if !s.decode(w, r, &body) {
		return
	}
	if err := s.Accounts.Logout(r.Context(), body.Email); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Déconnexion réussie."})
}

func (s *Server) UpdateUserInfos(w http.ResponseWriter, r *http.Request) {
	var body updateUserInfosRequest
	if !s.decode(w, r, &body) {
		return
	}
	_, err := s.Accounts.UpdateProfile(r.Context(), accounts.UpdateProfileInput{
		AccountID: domain.AccountID(body.ID),
		FirstName: body.Prenom,
		LastName:  body.Nom,
		Phone:     body.Telephone,
		Email:     body.Email,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Msg: "Informations mises à jour."})
}

func (s *Server) UpsertTrip(w http.ResponseWriter, r *http.Request) {
	var body upsertTripRequest
	if !s.decode(w, r, &body) {
		return
	}
	trip, err := s.Trips.Upsert(r.Context(), domain.LookupKey(body.ID), trips.UpsertTripInput{
		AccountID:  domain.AccountID(strings.TrimSpace(body.UserID)),
		TripFields: body.toFields(),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upsertTripResponse{Trajet: toTripDTO(trip)})
}

func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	list, err := s.Trips.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	out := make([]tripDTO, 0, len(list))
	for _, t := range list {
		out = append(out, toTripDTO(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateTrip honors an optional Idempotency-Key header:
//   - same key and same body replays the first response;
//   - same key with a different body is rejected with 409.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body createTripRequest
	if !s.decode(w, r, &body) {
		return
	}

	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	var respFP idempotency.Fingerprint
	if s.Idem != nil && idemKey != "" {
		mu := s.idemLock(idemKey)
		mu.Lock()
		defer mu.Unlock()

		bodyHash, err := hashBody(body)
		if err != nil {
			s.writeServiceError(w, r, err)
			return
		}
		metaFP := idempotency.Fingerprint{
			Key:      idempotency.Key(idemKey),
			Method:   http.MethodPost,
			Route:    tripsRoute,
			BodyHash: "",
		}
		if meta, ok, err := s.Idem.Get(ctx, metaFP); err != nil {
			s.writeServiceError(w, r, err)
			return
		} else if ok {
			if string(meta.Body) != bodyHash {
				writeError(w, r, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE", "idempotency key reuse with different payload", nil)
				return
			}
		} else {
			if err := s.Idem.Put(ctx, metaFP, idempotency.Record{
				StatusCode:  0,
				ContentType: "text/plain",
				Body:        []byte(bodyHash),
				CreatedAt:   time.Now().UTC(),
			}); err != nil {
				logging.LogError(ctx, s.logger, "idempotency key record failed", err)
			}
		}

		respFP = metaFP
		respFP.BodyHash = bodyHash
		if rec, ok, err := s.Idem.Get(ctx, respFP); err != nil {
			s.writeServiceError(w, r, err)
			return
		} else if ok && rec.StatusCode == http.StatusOK && strings.HasPrefix(rec.ContentType, "application/json") {
			w.Header().Set("Content-Type", rec.ContentType)
			w.Header().Set("Idempotent-Replayed", "true")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.Body)
			return
		}
	}

	trip, err := s.Trips.Create(ctx, trips.CreateTripInput{
		AccountID:  domain.AccountID(strings.TrimSpace(body.UserID)),
		TripFields: body.toFields(),
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := createTripResponse{Message: "Trajet enregistré", Trajet: toTripDTO(trip)}
	if respFP.Key != "" {
		b, err := json.Marshal(resp)
		if err == nil {
			err = s.Idem.Put(ctx, respFP, idempotency.Record{
				StatusCode:  http.StatusOK,
				ContentType: "application/json",
				Body:        append(b, '\n'),
				CreatedAt:   time.Now().UTC(),
			})
		}
		if err != nil {
			logging.LogError(ctx, s.logger, "idempotency response record failed", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads a JSON body into dst. On failure it writes the error response and returns false.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "missing request body", nil)
		case errors.As(err, &maxErr):
			writeError(w, r, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "request body too large", nil)
		default:
			writeError(w, r, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "malformed request body", map[string]any{"reason": err.Error()})
		}
		return false
	}
	return true
}

func hashBody(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func (s *Server) idemLock(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &s.idemLocks[h.Sum32()%idemLockStripes]
}
