package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/video-stream/subtrans/internal/auth"
)

func openTest(t *testing.T) *Database {
	t.Helper()
	d, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

func TestEnsureAdmin(t *testing.T) {
	d := openTest(t)
	if err := d.EnsureAdmin("admin", "pw"); err != nil {
		t.Fatal(err)
	}
	// second call is a no-op
	if err := d.EnsureAdmin("other", "pw2"); err != nil {
		t.Fatal(err)
	}

	u, err := d.GetUserByUsername("admin")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != "admin" || !auth.CheckPassword(u.Password, "pw") {
		t.Errorf("user = %+v", u)
	}
	if _, err := d.GetUserByUsername("other"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second admin err = %v", err)
	}
	if byID, err := d.GetUserByID(u.ID); err != nil || byID.Username != "admin" {
		t.Errorf("GetUserByID = %v, %v", byID, err)
	}
}

func TestSettings(t *testing.T) {
	d := openTest(t)
	if got := d.GetSetting("gemini_model", "fallback"); got != "fallback" {
		t.Errorf("default = %q", got)
	}
	d.SetSetting("gemini_model", "a")
	d.SetSetting("gemini_model", "b")
	if got := d.GetSetting("gemini_model", ""); got != "b" {
		t.Errorf("setting = %q", got)
	}
	all, err := d.GetAllSettings()
	if err != nil || len(all) != 1 {
		t.Errorf("GetAllSettings = %v, %v", all, err)
	}
	d.SetSetting("gemini_model", "")
	if got := d.GetSetting("gemini_model", "env"); got != "env" {
		t.Errorf("cleared setting = %q", got)
	}
}

func TestTranslationPresets(t *testing.T) {
	d := openTest(t)
	id, err := d.CreateTranslationPreset("formal", "Use polite forms.")
	if err != nil {
		t.Fatal(err)
	}
	if err := d.UpdateTranslationPreset(id, "formal", "Use honorifics."); err != nil {
		t.Fatal(err)
	}
	p, err := d.GetTranslationPreset(id)
	if err != nil || p.Prompt != "Use honorifics." {
		t.Fatalf("preset = %+v, %v", p, err)
	}
	if err := d.UpdateTranslationPreset(id+100, "x", "y"); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing err = %v", err)
	}

	if err := d.DeleteTranslationPreset(id); err != nil {
		t.Fatal(err)
	}
	list, err := d.ListTranslationPresets()
	if err != nil || len(list) != 0 {
		t.Errorf("list = %v, %v", list, err)
	}
	if _, err := d.GetTranslationPreset(id); !errors.Is(err, ErrNotFound) {
		t.Errorf("get deleted err = %v", err)
	}
}
