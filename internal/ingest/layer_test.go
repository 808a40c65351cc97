package ingest

import "testing"

func TestLayer_ReplayPutGet(t *testing.T) {
	l := NewLayer(4)
	h, err := l.ReplayOpen()
	if err != nil {
		t.Fatalf("ReplayOpen: %v", err)
	}
	defer l.ReplayClose(h)

	if err := l.ReplayPut(h, 1, 11, []byte("a"), []byte("1"), false); err != nil {
		t.Fatalf("ReplayPut: %v", err)
	}

	val, ok := l.Get(1, []byte("a"))
	if !ok {
		t.Fatal("Get: key not found")
	}
	if string(val) != "1" {
		t.Fatalf("Get: got %q, want %q", val, "1")
	}
}

func TestLayer_ReplayDel(t *testing.T) {
	l := NewLayer(4)
	h, _ := l.ReplayOpen()
	defer l.ReplayClose(h)

	l.ReplayPut(h, 1, 11, []byte("a"), []byte("1"), false)
	if err := l.ReplayDel(h, 1, 12, []byte("a"), false); err != nil {
		t.Fatalf("ReplayDel: %v", err)
	}
	if _, ok := l.Get(1, []byte("a")); ok {
		t.Fatal("Get: deleted key still visible")
	}
	if got := l.Len(); got != 0 {
		t.Fatalf("Len: got %d, want 0", got)
	}
}

func TestLayer_ReplayPdel(t *testing.T) {
	l := NewLayer(4)
	h, _ := l.ReplayOpen()
	defer l.ReplayClose(h)

	l.ReplayPut(h, 1, 11, []byte("user/1"), []byte("a"), false)
	l.ReplayPut(h, 1, 12, []byte("user/2"), []byte("b"), false)
	l.ReplayPut(h, 1, 13, []byte("other/1"), []byte("c"), false)

	n, err := l.ReplayPdel(h, 1, 14, []byte("user/"), false)
	if err != nil {
		t.Fatalf("ReplayPdel: %v", err)
	}
	if n != 2 {
		t.Fatalf("ReplayPdel: affected %d, want 2", n)
	}
	if _, ok := l.Get(1, []byte("user/1")); ok {
		t.Fatal("user/1 should be deleted")
	}
	if _, ok := l.Get(1, []byte("other/1")); !ok {
		t.Fatal("other/1 should remain")
	}
}

func TestLayer_InvalidHandleRejected(t *testing.T) {
	l := NewLayer(4)
	h, _ := l.ReplayOpen()
	defer l.ReplayClose(h)

	bad := Handle{}
	if err := l.ReplayPut(bad, 1, 1, []byte("a"), []byte("b"), false); err != ErrInvalidHandle {
		t.Fatalf("ReplayPut with bad handle: got %v, want ErrInvalidHandle", err)
	}
}

func TestLayer_ReplayOpenTwiceFails(t *testing.T) {
	l := NewLayer(4)
	h, err := l.ReplayOpen()
	if err != nil {
		t.Fatalf("ReplayOpen: %v", err)
	}
	defer l.ReplayClose(h)

	if _, err := l.ReplayOpen(); err != ErrAlreadyOpen {
		t.Fatalf("second ReplayOpen: got %v, want ErrAlreadyOpen", err)
	}
}

func TestLayer_GenAndSeqnoSet(t *testing.T) {
	l := NewLayer(4)
	l.ReplayEnable()
	if !l.InReplayMode() {
		t.Fatal("expected replay mode enabled")
	}
	l.ReplayGenSet(7)
	if got := l.CurrentGen(); got != 7 {
		t.Fatalf("CurrentGen: got %d, want 7", got)
	}
	l.ReplaySeqnoSet(42)
	if got := l.CurrentSeqno(); got != 42 {
		t.Fatalf("CurrentSeqno: got %d, want 42", got)
	}
	l.ReplayDisable()
	if l.InReplayMode() {
		t.Fatal("expected replay mode disabled")
	}
}
