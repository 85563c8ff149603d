package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Bren2010/notetree/crypto/commitments"
	"github.com/Bren2010/notetree/tree/accumulator"
	"github.com/Bren2010/notetree/tree/incremental"
)

const maxRequestSize = 1 << 16

// apiError is an error that should be reported to the client with a specific
// status code.
type apiError struct {
	status int
	msg    string
}

func (e *apiError) Error() string { return e.msg }

func badRequest(format string, args ...interface{}) error {
	return &apiError{http.StatusBadRequest, fmt.Sprintf(format, args...)}
}

type apiFunc func(req *http.Request) (interface{}, error)

// HandleAPI wraps an API endpoint, encoding its response as JSON and mapping
// errors to status codes.
func HandleAPI(fn apiFunc) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		path := req.URL.Path
		if route := mux.CurrentRoute(req); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				path = tmpl
			}
		}

		res, err := fn(req)
		status := http.StatusOK
		if err != nil {
			var ae *apiError
			switch {
			case errors.As(err, &ae):
				status = ae.status
			case errors.Is(err, incremental.ErrTreeFull):
				status = http.StatusConflict
			case errors.Is(err, accumulator.ErrInvalidLeaf):
				status = http.StatusBadRequest
			case errors.Is(err, accumulator.ErrLeafNotFound):
				status = http.StatusNotFound
			default:
				status = http.StatusInternalServerError
				log.Printf("Error handling request for %v: %v", path, err)
				err = errors.New("internal server error")
			}
			res = ErrorResponse{Error: err.Error()}
		}
		requestCtr.WithLabelValues(path, strconv.Itoa(status)).Inc()

		rw.Header().Set("Content-Type", "application/json")
		rw.WriteHeader(status)
		if err := json.NewEncoder(rw).Encode(res); err != nil {
			log.Println(err)
		}
	}
}

type Handler struct {
	config *APIConfig
	acc    *accumulator.Accumulator
	ch     chan<- InsertRequest
}

// Home redirects requests to a pre-configured URL, like the API documentation.
func (h *Handler) Home(rw http.ResponseWriter, req *http.Request) {
	http.Redirect(rw, req, h.config.HomeRedirect, http.StatusSeeOther)
}

func encodePath(path []incremental.Hash) []string {
	out := make([]string, len(path))
	for i, h := range path {
		out[i] = h.String()
	}
	return out
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MetaResponse struct {
	HashAlgorithm string `json:"hash_algorithm"`
	HashSize      int    `json:"hash_size"`
	Levels        int    `json:"levels"`
	Capacity      uint64 `json:"capacity"`
}

func (h *Handler) Meta(req *http.Request) (interface{}, error) {
	cs := h.acc.Suite()
	return MetaResponse{
		HashAlgorithm: cs.Name(),
		HashSize:      cs.HashSize(),
		Levels:        h.acc.Levels(),
		Capacity:      h.acc.Capacity(),
	}, nil
}

type RootResponse struct {
	Root string `json:"root"`
	Size uint64 `json:"size"`
	Full bool   `json:"full"`
}

func (h *Handler) Root(req *http.Request) (interface{}, error) {
	return RootResponse{
		Root: h.acc.Root().String(),
		Size: h.acc.Size(),
		Full: h.acc.Full(),
	}, nil
}

type AppendRequest struct {
	Leaf string `json:"leaf"`
}

type AppendResponse struct {
	Index uint64   `json:"index"`
	Root  string   `json:"root"`
	Path  []string `json:"path"`
}

// insert hands a leaf to the inserter goroutine and waits for the result.
func (h *Handler) insert(req *http.Request, leaf []byte) (*accumulator.Receipt, error) {
	resp := make(chan InsertResponse, 1)
	select {
	case h.ch <- InsertRequest{Leaf: leaf, Resp: resp}:
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
	select {
	case res := <-resp:
		return res.Receipt, res.Err
	case <-req.Context().Done():
		return nil, req.Context().Err()
	}
}

func decodeRequest(req *http.Request, v interface{}) error {
	if req.Method != http.MethodPost {
		return &apiError{http.StatusMethodNotAllowed, "method not allowed"}
	}
	if err := json.NewDecoder(io.LimitReader(req.Body, maxRequestSize)).Decode(v); err != nil {
		return badRequest("failed to parse request: %v", err)
	}
	return nil
}

func (h *Handler) Append(req *http.Request) (interface{}, error) {
	var body AppendRequest
	if err := decodeRequest(req, &body); err != nil {
		return nil, err
	}
	leaf, err := hex.DecodeString(body.Leaf)
	if err != nil {
		return nil, badRequest("leaf is not hex encoded: %v", err)
	}

	receipt, err := h.insert(req, leaf)
	if err != nil {
		return nil, err
	}
	return AppendResponse{
		Index: receipt.Index,
		Root:  receipt.Root.String(),
		Path:  encodePath(receipt.Path),
	}, nil
}

type CommitRequest struct {
	Body []byte `json:"body"`
}

type CommitResponse struct {
	AppendResponse
	Opening    string `json:"opening"`
	Commitment string `json:"commitment"`
}

// Commit generates a commitment to the request body and appends it to the
// tree. The opening is returned to the caller and not stored anywhere.
func (h *Handler) Commit(req *http.Request) (interface{}, error) {
	var body CommitRequest
	if err := decodeRequest(req, &body); err != nil {
		return nil, err
	}
	cs := h.acc.Suite()

	opening, err := commitments.GenerateOpening(cs)
	if err != nil {
		return nil, err
	}
	commitment := commitments.Commit(cs, opening, body.Body)

	receipt, err := h.insert(req, commitment)
	if err != nil {
		return nil, err
	}
	return CommitResponse{
		AppendResponse: AppendResponse{
			Index: receipt.Index,
			Root:  receipt.Root.String(),
			Path:  encodePath(receipt.Path),
		},
		Opening:    hex.EncodeToString(opening),
		Commitment: hex.EncodeToString(commitment),
	}, nil
}

type LeafResponse struct {
	Index uint64 `json:"index"`
	Leaf  string `json:"leaf"`
}

func (h *Handler) Leaf(req *http.Request) (interface{}, error) {
	index, err := strconv.ParseUint(mux.Vars(req)["index"], 10, 64)
	if err != nil {
		return nil, badRequest("failed to parse index: %v", err)
	}
	leaf, err := h.acc.Leaf(index)
	if err != nil {
		return nil, err
	}
	return LeafResponse{Index: index, Leaf: leaf.String()}, nil
}

func newRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Home)
	r.HandleFunc("/v1/meta", HandleAPI(h.Meta)).Methods(http.MethodGet)
	r.HandleFunc("/v1/root", HandleAPI(h.Root)).Methods(http.MethodGet)
	r.HandleFunc("/v1/append", HandleAPI(h.Append)).Methods(http.MethodPost)
	r.HandleFunc("/v1/commit", HandleAPI(h.Commit)).Methods(http.MethodPost)
	r.HandleFunc("/v1/leaf/{index:[0-9]+}", HandleAPI(h.Leaf)).Methods(http.MethodGet)
	return r
}
