package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/leadwire/leadwire/crm"
	"github.com/leadwire/leadwire/event"
	"github.com/leadwire/leadwire/id"
)

// maxMessageSize caps a single control message at 512KB.
const maxMessageSize = 512 << 10

// Authenticator resolves the acting identity for a control connection at
// accept time. Returning an error rejects the upgrade with 401.
type Authenticator func(r *http.Request) (event.Actor, error)

// Config holds configuration for the control channel server.
type Config struct {
	CRM            *crm.Service
	Logger         *slog.Logger
	Authenticator  Authenticator
	OriginPatterns []string
}

// Server accepts WebSocket connections and runs a request/response command
// loop against the CRM service. All mutations flow through the same
// crm.Service the REST API uses, so both surfaces emit identical events.
type Server struct {
	crm            *crm.Service
	logger         *slog.Logger
	authenticate   Authenticator
	originPatterns []string
	schemas        map[string]*jsonschema.Schema
}

// NewServer creates a control channel server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.CRM == nil {
		return nil, errors.New("crm service is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	auth := cfg.Authenticator
	if auth == nil {
		auth = func(*http.Request) (event.Actor, error) {
			return event.System(), nil
		}
	}

	schemas, err := compileSchemas()
	if err != nil {
		return nil, fmt.Errorf("compile command schemas: %w", err)
	}

	return &Server{
		crm:            cfg.CRM,
		logger:         logger,
		authenticate:   auth,
		originPatterns: cfg.OriginPatterns,
		schemas:        schemas,
	}, nil
}

// RegisterRoutes registers the control channel endpoint on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/mcp", s.handleWS)
}

// handleWS upgrades the connection and runs the command loop until the
// client disconnects or a read fails.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	actor, err := s.authenticate(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.originPatterns,
	})
	if err != nil {
		s.logger.DebugContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()
	conn.SetReadLimit(maxMessageSize)

	ctx := r.Context()
	s.logger.DebugContext(ctx, "control connection opened", "actor", actor.Name)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.logger.DebugContext(ctx, "control connection closed")
			} else if ctx.Err() == nil {
				s.logger.DebugContext(ctx, "control connection read failed", "error", err)
			}
			return
		}

		resp := s.dispatch(ctx, data, actor)

		out, err := json.Marshal(resp)
		if err != nil {
			s.logger.ErrorContext(ctx, "marshal control response failed", "error", err)
			continue
		}
		if err := conn.Write(ctx, websocket.MessageText, out); err != nil {
			s.logger.DebugContext(ctx, "control connection write failed", "error", err)
			return
		}
	}
}

// dispatch parses and executes one command. Every failure becomes an error
// response; the connection stays open.
func (s *Server) dispatch(ctx context.Context, data []byte, actor event.Actor) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errResponse(fmt.Errorf("invalid request: %w", err))
	}
	if req.Command == "" {
		return errResponse(errors.New("command is required"))
	}

	if _, known := commandSchemas[req.Command]; !known {
		return errResponse(fmt.Errorf("unknown command %q", req.Command))
	}

	if err := validateArgs(s.schemas, req.Command, req.Args); err != nil {
		return errResponse(fmt.Errorf("invalid args: %w", err))
	}

	s.logger.DebugContext(ctx, "control command", "command", req.Command, "actor", actor.Name)

	var (
		result any
		err    error
	)
	switch req.Command {
	case CommandCreateLead:
		result, err = s.createLead(ctx, req.Args, actor)
	case CommandGetLeads:
		result, err = s.getLeads(ctx, req.Args)
	case CommandUpdateLead:
		result, err = s.updateLead(ctx, req.Args, actor)
	case CommandAddInteraction:
		result, err = s.addInteraction(ctx, req.Args, actor)
	case CommandGetAnalytics:
		result, err = s.crm.GetAnalytics(ctx)
	case CommandManageProducts:
		result, err = s.manageProducts(ctx, req.Args, actor)
	}
	if err != nil {
		return errResponse(err)
	}

	return Response{OK: true, Result: result}
}

func (s *Server) createLead(ctx context.Context, raw json.RawMessage, actor event.Actor) (any, error) {
	var args CreateLeadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}

	in := crm.LeadInput{
		Name:      args.Name,
		Email:     args.Email,
		Phone:     args.Phone,
		Company:   args.Company,
		Status:    args.Status,
		Priority:  args.Priority,
		DealValue: args.DealValue,
		Notes:     args.Notes,
	}

	for _, p := range args.InterestedProducts {
		prodID, err := id.ParseProductID(p)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q: %w", p, err)
		}
		in.InterestedProducts = append(in.InterestedProducts, prodID)
	}

	if args.AssignedTo != "" {
		userID, err := id.ParseUserID(args.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", args.AssignedTo, err)
		}
		in.AssignedTo = &userID
	}

	return s.crm.CreateLead(ctx, in, actor)
}

func (s *Server) getLeads(ctx context.Context, raw json.RawMessage) (any, error) {
	var args GetLeadsArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("decode args: %w", err)
		}
	}

	filter := crm.LeadFilter{
		Status:   args.Status,
		Priority: args.Priority,
		Company:  args.Company,
		Offset:   args.Offset,
		Limit:    args.Limit,
	}
	if args.AssignedTo != "" {
		userID, err := id.ParseUserID(args.AssignedTo)
		if err != nil {
			return nil, fmt.Errorf("invalid user id %q: %w", args.AssignedTo, err)
		}
		filter.AssignedTo = userID
	}

	return s.crm.ListLeads(ctx, filter)
}

func (s *Server) updateLead(ctx context.Context, raw json.RawMessage, actor event.Actor) (any, error) {
	var args UpdateLeadArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}

	leadID, err := id.ParseLeadID(args.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid lead id %q: %w", args.ID, err)
	}

	in := crm.LeadInput{
		Name:      args.Name,
		Email:     args.Email,
		Phone:     args.Phone,
		Company:   args.Company,
		Status:    args.Status,
		Priority:  args.Priority,
		DealValue: args.DealValue,
		Notes:     args.Notes,
	}

	for _, p := range args.InterestedProducts {
		prodID, err := id.ParseProductID(p)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q: %w", p, err)
		}
		in.InterestedProducts = append(in.InterestedProducts, prodID)
	}

	// assigned_to "" clears the assignment; a user id reassigns.
	if args.AssignedTo != nil {
		if *args.AssignedTo == "" {
			in.AssignedTo = &id.Nil
		} else {
			userID, err := id.ParseUserID(*args.AssignedTo)
			if err != nil {
				return nil, fmt.Errorf("invalid user id %q: %w", *args.AssignedTo, err)
			}
			in.AssignedTo = &userID
		}
	}

	return s.crm.UpdateLead(ctx, leadID, in, actor)
}

func (s *Server) addInteraction(ctx context.Context, raw json.RawMessage, actor event.Actor) (any, error) {
	var args AddInteractionArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}

	leadID, err := id.ParseLeadID(args.LeadID)
	if err != nil {
		return nil, fmt.Errorf("invalid lead id %q: %w", args.LeadID, err)
	}

	return s.crm.CreateInteraction(ctx, crm.InteractionInput{
		LeadID: leadID,
		Type:   args.Type,
		Text:   args.Text,
	}, actor)
}

func (s *Server) manageProducts(ctx context.Context, raw json.RawMessage, actor event.Actor) (any, error) {
	var args ManageProductsArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("decode args: %w", err)
	}

	switch args.Action {
	case ProductActionCreate:
		return s.crm.CreateProduct(ctx, crm.ProductInput{
			Name:        args.Name,
			Description: args.Description,
			Price:       args.Price,
			Category:    args.Category,
			Active:      args.Active,
		}, actor)

	case ProductActionUpdate:
		prodID, err := id.ParseProductID(args.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q: %w", args.ID, err)
		}
		return s.crm.UpdateProduct(ctx, prodID, crm.ProductInput{
			Name:        args.Name,
			Description: args.Description,
			Price:       args.Price,
			Category:    args.Category,
			Active:      args.Active,
		}, actor)

	case ProductActionDelete:
		prodID, err := id.ParseProductID(args.ID)
		if err != nil {
			return nil, fmt.Errorf("invalid product id %q: %w", args.ID, err)
		}
		if err := s.crm.DeleteProduct(ctx, prodID, actor); err != nil {
			return nil, err
		}
		return map[string]any{"deleted": true}, nil

	default:
		return nil, fmt.Errorf("unknown action %q", args.Action)
	}
}

func errResponse(err error) Response {
	return Response{OK: false, Error: err.Error()}
}
