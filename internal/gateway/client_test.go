package gateway_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/UnknownOlympus/leaddesk/internal/gateway"
	"github.com/UnknownOlympus/leaddesk/internal/metrics"
	"github.com/UnknownOlympus/leaddesk/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *gateway.Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())

	return gateway.NewClient(logger, srv.URL, "secret", time.Second, appMetrics)
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestLeads_Envelope(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/leads/get-leads", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"1","firstName":"Ann"},{"_id":"2","firstName":"Bob"}]}`)
	})

	leads, err := client.Leads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 2)
	assert.Equal(t, "1", leads[0].ID)
	assert.Equal(t, "Bob", leads[1].FirstName)
}

func TestLeads_BareArray(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `[{"id":"7","firstName":"Zed"}]`)
	})

	leads, err := client.Leads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, "7", leads[0].ID)
}

func TestLeads_MalformedDataIsEmpty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "object instead of list", body: `{"success":true,"data":{"_id":"1"}}`},
		{name: "null data", body: `{"success":true,"data":null}`},
		{name: "string data", body: `{"success":true,"data":"oops"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, tt.body)
			})

			leads, err := client.Leads(context.Background())
			require.NoError(t, err)
			assert.NotNil(t, leads)
			assert.Empty(t, leads)
		})
	}
}

func TestLeads_SkipsMalformedRecords(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":[`+
			`{"_id":"1","phone":"555"},`+
			`{"_id":"2","phone":5551234},`+
			`{"_id":"3","createdBy":{"_id":"sp1"}},`+
			`"garbage",`+
			`{"_id":"4","firstName":"Dee"}]}`)
	})

	leads, err := client.Leads(context.Background())
	require.NoError(t, err)
	require.Len(t, leads, 4)
	assert.Equal(t, "1", leads[0].ID)
	assert.Equal(t, "5551234", leads[1].Phone)
	assert.Equal(t, "sp1", leads[2].CreatedBy)
	assert.Equal(t, "Dee", leads[3].FirstName)
}

func TestLeads_Errors(t *testing.T) {
	t.Parallel()

	t.Run("success false", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":false,"error":"token expired"}`)
		})

		leads, err := client.Leads(context.Background())
		require.Error(t, err)
		assert.Empty(t, leads)

		var apiErr *gateway.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, "token expired", apiErr.Message)
		assert.Equal(t, "token expired", gateway.UserMessage(err))
	})

	t.Run("http status", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusForbidden, `{"message":"admins only"}`)
		})

		_, err := client.Leads(context.Background())
		var apiErr *gateway.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusForbidden, apiErr.Status)
		assert.Equal(t, "admins only", apiErr.Message)
	})

	t.Run("transport", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()

		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		client := gateway.NewClient(logger, srv.URL, "", time.Second, nil)

		_, err := client.Leads(context.Background())
		require.ErrorIs(t, err, gateway.ErrTransport)
		assert.False(t, gateway.IsAPIError(err))
	})
}

func TestCreateLead_Validation(t *testing.T) {
	t.Parallel()

	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	_, err := client.CreateLead(context.Background(), models.Lead{Email: "a@b.c"})
	require.Error(t, err)
	assert.True(t, gateway.IsValidationError(err))

	_, err = client.CreateLead(context.Background(), models.Lead{FirstName: "Ann"})
	require.Error(t, err)
	assert.True(t, gateway.IsValidationError(err))

	assert.Zero(t, calls)
}

func TestUpdateLead(t *testing.T) {
	t.Parallel()

	t.Run("returns updated entity", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "/api/leads/update-lead/42", r.URL.Path)

			var got map[string]any
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			assert.Equal(t, "Closed", got["leadStatus"])

			writeJSON(w, http.StatusOK, `{"success":true,"data":{"_id":"42","firstName":"Ann","leadStatus":"Closed"}}`)
		})

		lead, err := client.UpdateLead(context.Background(), models.Lead{
			ID: "42", FirstName: "Ann", Email: "ann@example.com", LeadStatus: models.StatusClosed,
		})
		require.NoError(t, err)
		require.NotNil(t, lead)
		assert.Equal(t, models.StatusClosed, lead.LeadStatus)
	})

	t.Run("no entity in response", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"modifiedCount":1}}`)
		})

		lead, err := client.UpdateLead(context.Background(), models.Lead{ID: "42", FirstName: "Ann", Phone: "1"})
		require.NoError(t, err)
		assert.Nil(t, lead)
	})
}

func TestDeleteLeads_PartialFailure(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := map[string]bool{}

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/leads/delete-lead/")
		mu.Lock()
		seen[id] = true
		mu.Unlock()

		if id == "id2" {
			writeJSON(w, http.StatusInternalServerError, `{"success":false,"error":"locked"}`)
			return
		}
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	result := client.DeleteLeads(context.Background(), []string{"id1", "id2", "id3"})

	assert.ElementsMatch(t, []string{"id1", "id3"}, result.Succeeded)
	require.Len(t, result.Failed, 1)
	assert.Contains(t, result.Failed, "id2")
	require.ErrorIs(t, result.Err(), gateway.ErrPartialFailure)
	assert.Len(t, seen, 3)
}

func TestDeleteLeads_BoundedConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := peak.Load()
			if current <= seen || peak.CompareAndSwap(seen, current) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	ids := make([]string, 3*gateway.MaxConcurrentWrites)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i)
	}

	result := client.DeleteLeads(context.Background(), ids)

	assert.Len(t, result.Succeeded, len(ids))
	assert.Empty(t, result.Failed)
	assert.LessOrEqual(t, peak.Load(), int32(gateway.MaxConcurrentWrites))
	assert.Greater(t, peak.Load(), int32(1), "deletes run concurrently")
}

func TestDeleteLeads_AllSucceed(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	result := client.DeleteLeads(context.Background(), []string{"a", "b"})
	assert.Len(t, result.Succeeded, 2)
	assert.NoError(t, result.Err())
}

func TestTags(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/manage-items/tags":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"t1","name":"Hot","color":"#ff0000"}]}`)
		case "/api/external-tags/whatsapp/c1":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"id":"w1","name":"Hot"}]}`)
		default:
			http.NotFound(w, r)
		}
	})

	crm, err := client.Tags(context.Background())
	require.NoError(t, err)
	require.Len(t, crm, 1)
	assert.Equal(t, models.TagSourceCRM, crm[0].Source)

	wa, err := client.WhatsAppTags(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, wa, 1)
	assert.Equal(t, models.TagSourceWhatsApp, wa[0].Source)
	assert.False(t, wa[0].Editable())
}

func TestTagWrites(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/manage-items/tags/t1", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"updatedLeads":3}}`)
	})

	updated, err := client.DeleteTag(context.Background(), models.Tag{ID: "t1", Name: "Hot"})
	require.NoError(t, err)
	assert.Equal(t, 3, updated)

	_, err = client.DeleteTag(context.Background(), models.Tag{ID: "w1", Source: models.TagSourceWhatsApp})
	require.ErrorIs(t, err, gateway.ErrReadOnlyTag)

	err = client.CreateTag(context.Background(), models.Tag{Name: "Warm", Color: "red"})
	assert.True(t, gateway.IsValidationError(err))
}

func TestReferenceItems(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/manage-items/products":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"p1","name":"Roof"}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/api/manage-items/lead-source":
			writeJSON(w, http.StatusOK, `{"success":true}`)
		default:
			writeJSON(w, http.StatusNotFound, `{"success":false,"error":"no route"}`)
		}
	})

	products, err := client.Products(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.ReferenceItem{{ID: "p1", Name: "Roof"}}, products)

	require.NoError(t, client.CreateItem(context.Background(), gateway.KindLeadSource, "Referral"))
	assert.True(t, gateway.IsValidationError(client.CreateItem(context.Background(), gateway.KindLeadSource, " ")))

	_, err = client.Categories(context.Background())
	assert.True(t, gateway.IsAPIError(err))
}

func TestSalespersonsAndComments(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/salespersons/get-salespersons":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"s1","username":"jdoe","email":"John@Example.com"}]}`)
		case "/api/comments/get-comments/l1":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"c1","leadId":"l1","text":"call back"}]}`)
		case "/api/comments/add-comment":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"_id":"c2","leadId":"l1","text":"done"}}`)
		default:
			http.NotFound(w, r)
		}
	})

	sp, found, err := client.FindSalespersonByEmail(context.Background(), "john@example.com")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "s1", sp.ID)

	_, found, err = client.FindSalespersonByEmail(context.Background(), "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, found)

	comments, err := client.Comments(context.Background(), "l1")
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, "call back", comments[0].Text)

	created, err := client.AddComment(context.Background(), models.Comment{LeadID: "l1", Text: "done"})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "c2", created.ID)

	_, err = client.AddComment(context.Background(), models.Comment{LeadID: "l1"})
	assert.True(t, gateway.IsValidationError(err))
}

func TestPing(t *testing.T) {
	t.Parallel()

	ok := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	require.NoError(t, ok.Ping(context.Background()))

	down := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	err := down.Ping(context.Background())
	var apiErr *gateway.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
}

func TestAdminWrites(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path)
		mu.Unlock()
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	ctx := context.Background()
	sp := models.Salesperson{ID: "s1", Username: "jdoe", Email: "jdoe@example.com"}

	require.NoError(t, client.CreateSalesperson(ctx, sp))
	require.NoError(t, client.UpdateSalesperson(ctx, sp))
	require.NoError(t, client.DeleteSalesperson(ctx, "s1"))
	require.NoError(t, client.DeleteComment(ctx, "c1"))
	require.NoError(t, client.UpdateItem(ctx, gateway.KindProducts, models.ReferenceItem{ID: "p1", Name: "Roof"}))
	require.NoError(t, client.DeleteItem(ctx, gateway.KindCategories, "k1"))
	require.NoError(t, client.UpdateTag(ctx, models.Tag{ID: "t1", Name: "Hot", Color: "#ff0000"}))

	assert.Equal(t, []string{
		"POST /api/salespersons/create-salesperson",
		"PUT /api/salespersons/update-salesperson/s1",
		"DELETE /api/salespersons/delete-salesperson/s1",
		"DELETE /api/comments/delete-comment/c1",
		"PUT /api/manage-items/products/p1",
		"DELETE /api/manage-items/categories/k1",
		"PUT /api/manage-items/tags/t1",
	}, calls)
}

func TestAdminWrites_Validation(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected")
	})
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"salesperson without email", func() error {
			return client.CreateSalesperson(ctx, models.Salesperson{Username: "jdoe", Email: "nope"})
		}},
		{"salesperson without id", func() error {
			return client.UpdateSalesperson(ctx, models.Salesperson{Username: "jdoe", Email: "j@example.com"})
		}},
		{"delete salesperson without id", func() error { return client.DeleteSalesperson(ctx, "") }},
		{"delete comment without id", func() error { return client.DeleteComment(ctx, "") }},
		{"item without name", func() error {
			return client.UpdateItem(ctx, gateway.KindProducts, models.ReferenceItem{ID: "p1"})
		}},
		{"delete item without id", func() error { return client.DeleteItem(ctx, gateway.KindProducts, "") }},
		{"tag without id", func() error { return client.UpdateTag(ctx, models.Tag{Name: "Hot"}) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, gateway.IsValidationError(tt.call()))
		})
	}
}

func TestExternalAndReferenceLists(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/external-tags/systemeio":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"x1","name":"Webinar"}]}`)
		case "/api/manage-items/lead-source", "/api/manage-items/lead-status":
			writeJSON(w, http.StatusOK, `{"success":true,"data":[{"_id":"i1","name":"Referral"}]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	tags, err := client.SystemeIOTags(ctx)
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, models.TagSourceSystemeIO, tags[0].Source)
	assert.False(t, tags[0].Editable())

	sources, err := client.LeadSources(ctx)
	require.NoError(t, err)
	assert.Len(t, sources, 1)

	statuses, err := client.LeadStatuses(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 1)
}
