package simerr

import (
	"errors"
	"testing"

	"github.com/cpmech/gosl/chk"
)

func Test_kind_string(tst *testing.T) {
	chk.PrintTitle("simerr: Kind.String() names every taxonomy member")

	cases := map[Kind]string{
		Topology:      "topology",
		Configuration: "configuration",
		Numerical:     "numerical",
		RuntimeLimit:  "runtime-limit",
		Integration:   "integration",
		Kind(99):      "unknown",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			tst.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func Test_constructors_tag_the_right_kind(tst *testing.T) {
	chk.PrintTitle("simerr: each *f constructor tags its matching Kind")

	cases := []struct {
		err  error
		kind Kind
	}{
		{Topologyf("s", "x"), Topology},
		{Configurationf("s", "x"), Configuration},
		{Numericalf("s", "x"), Numerical},
		{RuntimeLimitf("s", "x"), RuntimeLimit},
		{Integrationf("s", "x"), Integration},
	}
	for _, c := range cases {
		if !Is(c.err, c.kind) {
			tst.Errorf("expected Is(err, %s) to be true", c.kind)
		}
	}
}

func Test_error_message_includes_subject_when_present(tst *testing.T) {
	chk.PrintTitle("simerr: Error() includes the subject when non-empty, omits it otherwise")

	withSubject := Topologyf("channel 3", "dangling edge")
	if withSubject.Error() == "" {
		tst.Errorf("expected a non-empty error message")
	}
	gotSubject := withSubject.Error()
	wantSubjectPrefix := "topology (channel 3): "
	if len(gotSubject) < len(wantSubjectPrefix) || gotSubject[:len(wantSubjectPrefix)] != wantSubjectPrefix {
		tst.Errorf("expected %q to start with %q", gotSubject, wantSubjectPrefix)
	}

	withoutSubject := New(Numerical, "", "rank deficient")
	got := withoutSubject.Error()
	wantPrefix := "numerical: "
	if len(got) < len(wantPrefix) || got[:len(wantPrefix)] != wantPrefix {
		tst.Errorf("expected %q to start with %q", got, wantPrefix)
	}
}

func Test_unwrap_exposes_underlying_chk_error(tst *testing.T) {
	chk.PrintTitle("simerr: Unwrap exposes the underlying chk-produced error")

	e := Configurationf("resistance", "missing mu")
	if errors.Unwrap(e) == nil {
		tst.Errorf("expected Unwrap to expose a non-nil underlying error")
	}
}

func Test_is_rejects_a_plain_error(tst *testing.T) {
	chk.PrintTitle("simerr: Is returns false for an error that isn't a *Error")

	plain := errors.New("not a simerr.Error")
	if Is(plain, Topology) {
		tst.Errorf("expected Is to reject a plain error")
	}
}
