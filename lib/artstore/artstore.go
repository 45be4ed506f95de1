package artstore

// content-addressed storage of produced artifacts, served for download

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/xerrors"

	"asciirle/lib/hashtools"
	. "asciirle/lib/logx"
)

type Kind int

const (
	KindArt    Kind = iota // plain ascii art
	KindRLE                // run-length encoded art
	KindSource             // uploaded image
	kindMax
)

type kindInfo struct {
	dir string
	ext string // fixed extension, empty if per-file
}

var kinds = [kindMax]kindInfo{
	KindArt:    {dir: "art", ext: ".txt"},
	KindRLE:    {dir: "rle", ext: ".rle"},
	KindSource: {dir: "src"},
}

func (k Kind) String() string {
	if k >= 0 && k < kindMax {
		return kinds[k].dir
	}
	return "invalid"
}

const tmpDir = "_tmp"

var (
	ErrNotFound   = errors.New("artifact not found")
	ErrInvalidID  = errors.New("invalid artifact id")
	errInvalidExt = errors.New("invalid extension")
)

type Config struct {
	Path     string
	HashType hashtools.HashType // 0 means auto
}

type Store struct {
	root   string
	ht     hashtools.HashType
	log    Logger
	initMu sync.Mutex
	inited map[string]struct{}
}

func Open(cfg Config, lx LoggerX) (*Store, error) {
	if cfg.Path == "" {
		return nil, errors.New("artstore: empty path")
	}
	s := &Store{
		root:   filepath.Clean(cfg.Path),
		ht:     cfg.HashType,
		log:    NewLogToX(lx, "artstore"),
		inited: make(map[string]struct{}),
	}
	if s.ht == 0 {
		s.ht = hashtools.AutoHashType()
	}
	if err := s.ensureDir(tmpDir); err != nil {
		return nil, err
	}
	s.log.LogPrintf(DEBUG, "opened %q with %v ids", s.root, s.ht)
	return s, nil
}

func (s *Store) Root() string {
	return s.root
}

func (s *Store) ensureDir(dir string) error {
	s.initMu.Lock()
	defer s.initMu.Unlock()

	if _, ok := s.inited[dir]; ok {
		return nil
	}
	if err := os.MkdirAll(filepath.Join(s.root, dir), 0700); err != nil {
		return xerrors.Errorf("artstore mkdir %q: %w", dir, err)
	}
	s.inited[dir] = struct{}{}
	return nil
}

func validExt(ext string) bool {
	if len(ext) < 2 || len(ext) > 8 || ext[0] != '.' {
		return false
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}

// Put stores data of fixed-extension kind and returns its id.
func (s *Store) Put(k Kind, data []byte) (string, error) {
	return s.PutExt(k, "", data)
}

// PutExt stores data. ext is used only for kinds without fixed extension.
// Storing same content twice returns same id, keeps existing file and
// refreshes its modification time so Prune counts age from last Put.
// Ids cover kind too, so equal bytes of different kinds don't share id.
func (s *Store) PutExt(k Kind, ext string, data []byte) (id string, err error) {
	if k < 0 || k >= kindMax {
		return "", xerrors.Errorf("artstore: invalid kind %d", int(k))
	}
	ki := kinds[k]
	if ki.ext != "" {
		ext = ki.ext
	} else if ext = strings.ToLower(ext); !validExt(ext) {
		return "", errInvalidExt
	}

	id, err = hashtools.MakeID(io.MultiReader(
		bytes.NewReader([]byte{byte(k)}), bytes.NewReader(data)), s.ht)
	if err != nil {
		return
	}

	if err = s.ensureDir(ki.dir); err != nil {
		return
	}
	final := filepath.Join(s.root, ki.dir, id+ext)
	if _, e := os.Stat(final); e == nil {
		now := time.Now()
		if err = os.Chtimes(final, now, now); err != nil {
			return "", xerrors.Errorf("artstore touch %q: %w", final, err)
		}
		s.log.LogPrintf(DEBUG, "%s/%s%s already stored", ki.dir, id, ext)
		return
	}

	tf, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "put-*"+ext)
	if err != nil {
		return "", xerrors.Errorf("artstore tempfile: %w", err)
	}
	tfn := tf.Name()
	defer func() {
		if err != nil {
			tf.Close()
			os.Remove(tfn)
		}
	}()

	if _, err = tf.Write(data); err != nil {
		return "", xerrors.Errorf("artstore write: %w", err)
	}
	if err = tf.Close(); err != nil {
		return "", xerrors.Errorf("artstore close: %w", err)
	}
	if err = os.Rename(tfn, final); err != nil {
		return "", xerrors.Errorf("artstore rename %q -> %q: %w", tfn, final, err)
	}

	s.log.LogPrintf(DEBUG, "stored %s/%s%s (%d bytes)", ki.dir, id, ext, len(data))
	return id, nil
}

// Entry is opened artifact. Caller must close F.
type Entry struct {
	F    *os.File
	Kind Kind
	Name string // base filename including extension
	Size int64
	Mod  time.Time
}

func (s *Store) find(id string) (string, Kind, error) {
	for k := Kind(0); k < kindMax; k++ {
		ki := kinds[k]
		if ki.ext != "" {
			fn := filepath.Join(s.root, ki.dir, id+ki.ext)
			if _, err := os.Stat(fn); err == nil {
				return fn, k, nil
			}
			continue
		}
		// id is validated, can't contain glob metacharacters
		m, err := filepath.Glob(filepath.Join(s.root, ki.dir, id+".*"))
		if err != nil {
			return "", 0, err
		}
		if len(m) != 0 {
			return m[0], k, nil
		}
	}
	return "", 0, ErrNotFound
}

// Get opens artifact by id.
func (s *Store) Get(id string) (e Entry, err error) {
	if !hashtools.ValidID(id) {
		return e, ErrInvalidID
	}
	fn, k, err := s.find(id)
	if err != nil {
		return
	}
	f, err := os.Open(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return e, ErrNotFound
		}
		return e, xerrors.Errorf("artstore open: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return e, xerrors.Errorf("artstore stat: %w", err)
	}
	return Entry{
		F:    f,
		Kind: k,
		Name: filepath.Base(fn),
		Size: st.Size(),
		Mod:  st.ModTime(),
	}, nil
}

// Prune removes artifacts (and stale temp files) not modified since
// now-maxAge. Returns number of removed files.
func (s *Store) Prune(maxAge time.Duration) (n int, err error) {
	cutoff := time.Now().Add(-maxAge)
	dirs := []string{tmpDir}
	for _, ki := range kinds {
		dirs = append(dirs, ki.dir)
	}
	for _, d := range dirs {
		ents, e := os.ReadDir(filepath.Join(s.root, d))
		if e != nil {
			if os.IsNotExist(e) {
				continue
			}
			return n, xerrors.Errorf("artstore readdir %q: %w", d, e)
		}
		for _, de := range ents {
			if de.IsDir() {
				continue
			}
			fi, e := de.Info()
			if e != nil || !fi.ModTime().Before(cutoff) {
				continue
			}
			e = os.Remove(filepath.Join(s.root, d, de.Name()))
			if e != nil && !os.IsNotExist(e) {
				s.log.LogPrintf(WARN, "prune %s/%s: %v", d, de.Name(), e)
				continue
			}
			n++
		}
	}
	if n != 0 {
		s.log.LogPrintf(INFO, "pruned %d artifacts older than %v", n, maxAge)
	}
	return
}
