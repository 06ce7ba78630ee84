package server

import (
	"net/http"
	"reflect"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/photon-storage/go-common/log"

	"github.com/photon-storage/photon-settlement/api/pagination"
	"github.com/photon-storage/photon-settlement/api/service"
	"github.com/photon-storage/photon-settlement/errs"
)

// handleFunc is a service method of one of the shapes
//
//	func(*gin.Context) (T, error)
//	func(*gin.Context, *Req) (T, error)
//	func(*gin.Context, *Req, *pagination.Query) (*pagination.Result, error)
//
// where the leading return value is optional.
type handleFunc interface{}

var (
	contextType = reflect.TypeOf(&gin.Context{})
	queryType   = reflect.TypeOf(&pagination.Query{})
	resultType  = reflect.TypeOf(&pagination.Result{})
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
)

type response struct {
	Code int         `json:"code"`
	Msg  string      `json:"msg"`
	Data interface{} `json:"data,omitempty"`
}

func validateFunc(fn handleFunc) error {
	t := reflect.TypeOf(fn)
	if t == nil || t.Kind() != reflect.Func {
		return errors.New("handler must be a function")
	}

	if t.NumIn() < 1 || t.NumIn() > 3 {
		return errors.New("handler takes one to three parameters")
	}

	if t.In(0) != contextType {
		return errors.New("the first parameter must be *gin.Context")
	}

	if t.NumIn() > 1 && t.In(1).Kind() != reflect.Ptr {
		return errors.New("the second parameter must be a pointer")
	}

	if t.NumIn() > 2 && t.In(2) != queryType {
		return errors.New("the third parameter must be *pagination.Query")
	}

	if t.NumOut() < 1 || t.NumOut() > 2 {
		return errors.New("handler returns one or two values")
	}

	if t.Out(t.NumOut()-1) != errorType {
		return errors.New("the last return value must be an error")
	}

	if t.NumIn() == 3 && (t.NumOut() != 2 || t.Out(0) != resultType) {
		return errors.New("paginated handler must return *pagination.Result")
	}

	return nil
}

// handle adapts fn to gin. The request parameter is bound from the query
// string on GET and from the JSON body otherwise.
func (s *Server) handle(fn handleFunc) gin.HandlerFunc {
	if err := validateFunc(fn); err != nil {
		panic(err)
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	return func(c *gin.Context) {
		in := []reflect.Value{reflect.ValueOf(c)}
		if t.NumIn() > 1 {
			req := reflect.New(t.In(1).Elem())
			if err := bind(c, req.Interface()); err != nil {
				_ = c.Error(errs.Validation("%v", err))
				return
			}
			in = append(in, req)
		}

		if t.NumIn() > 2 {
			page, err := pagination.FromContext(c)
			if err != nil {
				_ = c.Error(errs.Validation("%v", err))
				return
			}
			in = append(in, reflect.ValueOf(page))
		}

		out := v.Call(in)
		if e := out[len(out)-1]; !e.IsNil() {
			_ = c.Error(e.Interface().(error))
			return
		}

		resp := &response{Msg: "success"}
		if len(out) == 2 {
			resp.Data = out[0].Interface()
		}
		c.JSON(http.StatusOK, resp)
	}
}

func bind(c *gin.Context, req interface{}) error {
	if c.Request.Method == http.MethodGet {
		return c.ShouldBindQuery(req)
	}

	return c.ShouldBindJSON(req)
}

var errorStatus = []struct {
	err    error
	status int
}{
	{errs.ErrValidation, http.StatusBadRequest},
	{errs.ErrEncodingRange, http.StatusBadRequest},
	{errs.ErrNotFound, http.StatusNotFound},
	{errs.ErrConflict, http.StatusConflict},
	{errs.ErrInvalidTransition, http.StatusConflict},
	{errs.ErrRenewalRejected, http.StatusConflict},
	{errs.ErrVerificationFailed, http.StatusUnprocessableEntity},
	{errs.ErrPriceUnavailable, http.StatusServiceUnavailable},
	{errs.ErrVerificationTimeout, http.StatusGatewayTimeout},
	{errs.ErrPersistence, http.StatusInternalServerError},
}

func classify(err error) (int, int) {
	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			return e.status, service.ErrorCode[e.err]
		}
	}

	return http.StatusInternalServerError, service.ErrorCode[service.ErrSystem]
}

// handleError renders the last error recorded by a handler.
func handleError() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, code := classify(err)
		msg := err.Error()
		if status == http.StatusInternalServerError {
			log.Error("request failed", "path", c.FullPath(), "error", err)
			msg = service.ErrSystem.Error()
		}

		c.JSON(status, &response{Code: code, Msg: msg})
	}
}
