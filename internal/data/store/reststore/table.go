package reststore

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/yungbote/lms-backend/internal/data/store"
	"github.com/yungbote/lms-backend/internal/platform/logger"
)

type table[T any] struct {
	client *resty.Client
	log    *logger.Logger
	name   string
}

func newTable[T any](client *resty.Client, baseLog *logger.Logger) *table[T] {
	name := store.TableNameOf[T]()
	return &table[T]{client: client, log: baseLog.With("table", name), name: name}
}

func (t *table[T]) path() string { return "/" + t.name }

func (t *table[T]) request(ctx context.Context, where store.Where) (*resty.Request, error) {
	params, err := filterParams(where)
	if err != nil {
		return nil, err
	}
	return t.client.R().SetContext(ctx).SetQueryParamsFromValues(params), nil
}

func (t *table[T]) FindUnique(ctx context.Context, where store.Where) (*T, error) {
	return t.FindFirst(ctx, store.Query{Where: where})
}

func (t *table[T]) FindFirst(ctx context.Context, q store.Query) (*T, error) {
	q.Take = 1
	rows, err := t.FindMany(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (t *table[T]) FindMany(ctx context.Context, q store.Query) ([]T, error) {
	req, err := t.request(ctx, q.Where)
	if err != nil {
		return nil, err
	}
	if sel := store.BuildSelection(q.Select); sel != "" {
		req.SetQueryParam("select", sel)
	}
	if order := orderParam(q.OrderBy); order != "" {
		req.SetQueryParam("order", order)
	}
	if r := rangeHeader(q.Take, q.Skip); r != "" {
		req.SetHeader("Range-Unit", "items").SetHeader("Range", r)
	}
	resp, err := req.Get(t.path())
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return decodeRows[T](resp.Body())
}

func (t *table[T]) Count(ctx context.Context, where store.Where) (int64, error) {
	req, err := t.request(ctx, where)
	if err != nil {
		return 0, err
	}
	resp, err := req.SetHeader("Prefer", "count=exact").Head(t.path())
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	return parseContentRange(resp.Header().Get("Content-Range"))
}

func (t *table[T]) Create(ctx context.Context, row *T) error {
	body, err := encodeRow(row)
	if err != nil {
		return err
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=representation").
		SetBody(body).
		Post(t.path())
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	created, err := decodeRows[T](resp.Body())
	if err != nil {
		return err
	}
	if len(created) > 0 {
		*row = created[0]
	}
	return nil
}

func (t *table[T]) CreateMany(ctx context.Context, rows []T) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	body := make([]map[string]any, 0, len(rows))
	for i := range rows {
		m, err := encodeRow(&rows[i])
		if err != nil {
			return 0, err
		}
		body = append(body, m)
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetHeader("Prefer", "return=minimal").
		SetBody(body).
		Post(t.path())
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (t *table[T]) Update(ctx context.Context, where store.Where, patch store.Patch) (*T, error) {
	if len(patch) == 0 {
		row, err := t.FindUnique(ctx, where)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return nil, store.ErrNotFound
		}
		return row, nil
	}
	rows, err := t.patch(ctx, where, patch)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return &rows[0], nil
}

func (t *table[T]) UpdateMany(ctx context.Context, where store.Where, patch store.Patch) (int64, error) {
	if len(patch) == 0 {
		return 0, nil
	}
	rows, err := t.patch(ctx, where, patch)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}

func (t *table[T]) patch(ctx context.Context, where store.Where, patch store.Patch) ([]T, error) {
	req, err := t.request(ctx, where)
	if err != nil {
		return nil, err
	}
	resp, err := req.
		SetHeader("Prefer", "return=representation").
		SetBody(patchBody(patch)).
		Patch(t.path())
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return decodeRows[T](resp.Body())
}

func (t *table[T]) Delete(ctx context.Context, where store.Where) error {
	n, err := t.DeleteMany(ctx, where)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *table[T]) DeleteMany(ctx context.Context, where store.Where) (int64, error) {
	req, err := t.request(ctx, where)
	if err != nil {
		return 0, err
	}
	resp, err := req.
		SetHeader("Prefer", "return=representation").
		SetQueryParam("select", "id").
		Delete(t.path())
	if err := checkResponse(resp, err); err != nil {
		return 0, err
	}
	maps, err := decodeMaps(resp.Body())
	if err != nil {
		return 0, err
	}
	return int64(len(maps)), nil
}

// Upsert inserts with ignore-duplicates on the conflict columns and, when the
// row already existed, patches only the update fields. merge-duplicates is
// avoided because it would overwrite every supplied column, the key included.
func (t *table[T]) Upsert(ctx context.Context, row *T, conflict []string, update store.Patch) error {
	body, err := encodeRow(row)
	if err != nil {
		return err
	}
	cols := make([]string, 0, len(conflict))
	for _, f := range conflict {
		cols = append(cols, store.ToSnake(f))
	}
	resp, err := t.client.R().
		SetContext(ctx).
		SetQueryParam("on_conflict", strings.Join(cols, ",")).
		SetHeader("Prefer", "resolution=ignore-duplicates,return=representation").
		SetBody(body).
		Post(t.path())
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	inserted, err := decodeRows[T](resp.Body())
	if err != nil {
		return err
	}
	if len(inserted) > 0 {
		*row = inserted[0]
		return nil
	}

	where := store.Where{}
	for i, f := range conflict {
		where[f] = body[cols[i]]
	}
	if len(update) == 0 {
		existing, err := t.FindUnique(ctx, where)
		if err != nil {
			return err
		}
		if existing != nil {
			*row = *existing
		}
		return nil
	}
	updated, err := t.Update(ctx, where, update)
	if err != nil {
		return err
	}
	*row = *updated
	return nil
}

func (t *table[T]) GroupByCount(ctx context.Context, field string, where store.Where) (map[string]int64, error) {
	req, err := t.request(ctx, where)
	if err != nil {
		return nil, err
	}
	resp, err := req.SetQueryParam("select", store.ToSnake(field)).Get(t.path())
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	rows, err := decodeMaps(resp.Body())
	if err != nil {
		return nil, err
	}
	return store.CountBy(rows, field), nil
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// checkResponse passes transport errors through untouched and turns non-2xx
// responses into *store.BackendError.
func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if !resp.IsError() {
		return nil
	}
	be := &store.BackendError{Status: resp.StatusCode()}
	var body errorBody
	if jsonErr := json.Unmarshal(resp.Body(), &body); jsonErr == nil {
		be.Code = body.Code
		be.Message = body.Message
		be.Details = body.Details
		be.Hint = body.Hint
	}
	if be.Message == "" {
		be.Message = http.StatusText(resp.StatusCode())
	}
	return be
}
