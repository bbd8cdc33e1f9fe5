package handlers_test

import (
	"net/http"
	"testing"

	"autolot/internal/domain"
)

func TestLogs_AdminMutationsAreAudited(t *testing.T) {
	app, _ := newTestApp(t, testConfig())
	var id string
	entries := captureLogs(t, func() {
		code, body := doJSON(t, app, "POST", "/listings", civic, withAdmin(testCode))
		if code != http.StatusCreated {
			t.Fatalf("create: %d %s", code, body)
		}
		id = decode[domain.Listing](t, body).ID
		doJSON(t, app, "DELETE", "/listings/"+id, "", withAdmin(testCode))
	})

	e, ok := findLog(entries, "listing.create")
	if !ok {
		t.Fatalf("no listing.create entry in %+v", entries)
	}
	if e.Level != "audit" || !e.Admin || e.Fields["id"] != id {
		t.Fatalf("bad audit entry %+v", e)
	}
	if _, ok := findLog(entries, "listing.delete"); !ok {
		t.Fatal("no listing.delete entry")
	}
}

func TestLogs_DeniedAccessIsSecurityEvent(t *testing.T) {
	app, _ := newTestApp(t, testConfig())
	entries := captureLogs(t, func() {
		doJSON(t, app, "POST", "/listings", civic, withAdmin("wrong"))
	})
	e, ok := findLog(entries, "access.denied.admin")
	if !ok {
		t.Fatalf("no access.denied.admin entry in %+v", entries)
	}
	if e.Admin || e.Fields["header_present"] != true {
		t.Fatalf("bad security entry %+v", e)
	}
	for _, e := range entries {
		if e.Action == "listing.create" {
			t.Fatal("refused request must not reach the handler")
		}
	}
}

func TestLogs_SubmissionNotified(t *testing.T) {
	app, _ := newTestApp(t, testConfig())
	entries := captureLogs(t, func() {
		doJSON(t, app, "POST", "/submissions/newsletter", `{"email":"n@x.com"}`)
	})
	e, ok := findLog(entries, "submission.received")
	if !ok || e.Fields["type"] != "newsletter" {
		t.Fatalf("want submission.received for newsletter, got %+v", entries)
	}
}
