package rpc

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net"
	"net/http"
	"strings"

	"github.com/icrc151/ledgerd/internal/ledger/archive"
	"github.com/icrc151/ledgerd/internal/ledger/pipeline"
	"github.com/icrc151/ledgerd/internal/ledger/query"
	"github.com/icrc151/ledgerd/internal/rpc/stream"
)

// Server handles HTTP JSON-RPC 2.0 requests against a ledger pipeline and
// query service.
type Server struct {
	registry   *MethodRegistry
	ledger     *pipeline.Ledger
	query      *query.Service
	adminCIDRs []string
	stream     *stream.Hub
	archive    *archive.Store
}

// NewServer builds a Server and registers every spec.md §5/§6 method.
// hub and arc are both optional: if hub is non-nil, every successful
// transfer, approve, transfer_from, mint_tokens and burn_tokens call
// publishes its committed record to it for delivery to WebSocket
// subscribers; if arc is non-nil, it is also archived into the secondary
// SQL index. The mint record that create_token writes for an initial
// supply is neither published nor archived.
func NewServer(l *pipeline.Ledger, q *query.Service, adminCIDRs []string, hub *stream.Hub, arc *archive.Store) *Server {
	s := &Server{
		registry:   NewMethodRegistry(),
		ledger:     l,
		query:      q,
		adminCIDRs: adminCIDRs,
		stream:     hub,
		archive:    arc,
	}
	registerAllMethods(s)
	return s
}

// publishTx looks up the just-committed record at index and fans it out
// to the stream hub and archive store, whichever are attached. Lookup or
// fan-out failures are logged, not surfaced, since the write itself
// already succeeded.
func (s *Server) publishTx(ctx context.Context, index uint64) {
	if s.stream == nil && s.archive == nil {
		return
	}
	entry, ok, err := s.query.GetTransaction(ctx, index)
	if err != nil || !ok {
		log.Printf("rpc: publishTx: could not load committed record %d: %v", index, err)
		return
	}
	if s.stream != nil {
		s.stream.Publish(stream.EventFromEntry(entry))
	}
	if s.archive != nil {
		if err := s.archive.Record(ctx, entry); err != nil {
			log.Printf("rpc: archive: %v", err)
		}
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")

	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, errInternal("failed to read request body"), nil)
		return
	}
	defer r.Body.Close()

	var req JsonRpcRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, errParseError("invalid JSON"), nil)
		return
	}

	ctx := &RpcContext{
		Context:  r.Context(),
		Role:     s.roleFor(r),
		ClientIP: clientIP(r),
	}

	result, rpcErr := s.executeMethod(req.Method, req.Params, ctx)
	resp := JsonRpcResponse{JsonRpc: "2.0", ID: req.ID}
	if rpcErr != nil {
		resp.Error = rpcErr
	} else {
		resp.Result = result
	}
	s.writeResponse(w, resp)
}

func (s *Server) executeMethod(method string, params json.RawMessage, ctx *RpcContext) (interface{}, *RpcError) {
	handler, ok := s.registry.Get(method)
	if !ok {
		return nil, errMethodNotFound(method)
	}
	if ctx.Role < handler.RequiredRole() {
		return nil, errUnauthorized("method " + method + " requires admin access")
	}
	return handler.Handle(ctx, params)
}

// roleFor grants RoleAdmin when no admin allowlist is configured (the
// controller-set check inside the pipeline is the real gate in that case)
// or when the caller's address matches a configured CIDR.
func (s *Server) roleFor(r *http.Request) Role {
	if len(s.adminCIDRs) == 0 {
		return RoleAdmin
	}
	ip := net.ParseIP(clientIP(r))
	if ip == nil {
		return RoleGuest
	}
	for _, cidr := range s.adminCIDRs {
		_, block, err := net.ParseCIDR(cidr)
		if err == nil && block.Contains(ip) {
			return RoleAdmin
		}
		if cidr == clientIP(r) {
			return RoleAdmin
		}
	}
	return RoleGuest
}

func (s *Server) writeResponse(w http.ResponseWriter, resp JsonRpcResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("rpc: failed to marshal response: %v", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) writeError(w http.ResponseWriter, rpcErr *RpcError, id interface{}) {
	s.writeResponse(w, JsonRpcResponse{JsonRpc: "2.0", Error: rpcErr, ID: id})
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
