package vectorindex

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/kailas-cloud/culturai/internal/domain"
	"github.com/kailas-cloud/culturai/internal/domain/event"
	"github.com/kailas-cloud/culturai/internal/metrics"
)

// Artifact file names inside the index directory.
const (
	VectorsFile = "index.bin"
	EventsFile  = "events.json"
)

// index.bin layout, little endian: magic, version, dim, count, then count*dim float32.
var vectorsMagic = [4]byte{'C', 'V', 'I', 'X'}

const (
	vectorsVersion    = 1
	vectorsHeaderSize = 16
)

// ErrNoDir is returned by Save when the index has no storage directory.
var ErrNoDir = domain.ErrIndexNotPersistent

// Save writes both artifacts. Each file is written to a temp file and renamed into place.
func (ix *Index) Save() error {
	if ix.dir == "" {
		return ErrNoDir
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if err := os.MkdirAll(ix.dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}

	if err := writeAtomic(filepath.Join(ix.dir, VectorsFile), func(w io.Writer) error {
		return encodeVectors(w, ix.dim, len(ix.events), ix.vectors)
	}); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := writeAtomic(filepath.Join(ix.dir, EventsFile), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(ix.events)
	}); err != nil {
		return fmt.Errorf("save events: %w", err)
	}

	ix.logger.Info("Index saved", zap.String("dir", ix.dir), zap.Int("events", len(ix.events)))
	return nil
}

// Load replaces the arena with the persisted one. It reports false with a nil error
// when either artifact is missing. On any failure the current state is kept.
func (ix *Index) Load() (bool, error) {
	if ix.dir == "" {
		return false, nil
	}

	vecPath := filepath.Join(ix.dir, VectorsFile)
	evPath := filepath.Join(ix.dir, EventsFile)
	for _, p := range []string{vecPath, evPath} {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				ix.logger.Info("Persisted index incomplete", zap.String("missing", p))
				return false, nil
			}
			return false, fmt.Errorf("stat %s: %w", p, err)
		}
	}

	dim, count, vectors, err := readVectors(vecPath)
	if err != nil {
		return false, err
	}
	events, err := readEvents(evPath)
	if err != nil {
		return false, err
	}
	if len(events) != count {
		return false, &domain.IndexCorruptError{
			Artifact: EventsFile,
			Err:      fmt.Errorf("%d events for %d vectors", len(events), count),
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim != 0 && count > 0 && dim != ix.dim {
		return false, fmt.Errorf("persisted index has %d dimensions, want %d: %w",
			dim, ix.dim, domain.ErrVectorDimMismatch)
	}

	ids := make(map[string]int, len(events))
	for i := range events {
		ids[events[i].ID] = i
	}
	if count > 0 || ix.dim == 0 {
		ix.dim = dim
	}
	ix.vectors = vectors
	ix.events = events
	ix.ids = ids
	metrics.IndexedEvents.Set(float64(len(events)))

	ix.logger.Info("Index loaded", zap.String("dir", ix.dir), zap.Int("events", count), zap.Int("dimensions", dim))
	return true, nil
}

func encodeVectors(w io.Writer, dim, count int, vectors []float32) error {
	header := make([]byte, vectorsHeaderSize)
	copy(header[0:4], vectorsMagic[:])
	binary.LittleEndian.PutUint32(header[4:8], vectorsVersion)
	binary.LittleEndian.PutUint32(header[8:12], uint32(dim))
	binary.LittleEndian.PutUint32(header[12:16], uint32(count))
	if _, err := w.Write(header); err != nil {
		return err
	}

	buf := make([]byte, 4)
	for _, f := range vectors {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(f))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func readVectors(path string) (dim, count int, vectors []float32, err error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return 0, 0, nil, fmt.Errorf("read %s: %w", VectorsFile, err)
	}
	corrupt := func(format string, args ...any) error {
		return &domain.IndexCorruptError{Artifact: VectorsFile, Err: fmt.Errorf(format, args...)}
	}

	if len(data) < vectorsHeaderSize {
		return 0, 0, nil, corrupt("file too short: %d bytes", len(data))
	}
	if [4]byte(data[0:4]) != vectorsMagic {
		return 0, 0, nil, corrupt("bad magic %q", data[0:4])
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != vectorsVersion {
		return 0, 0, nil, corrupt("unsupported version %d", v)
	}
	dim = int(binary.LittleEndian.Uint32(data[8:12]))
	count = int(binary.LittleEndian.Uint32(data[12:16]))
	if dim == 0 && count > 0 {
		return 0, 0, nil, corrupt("zero dimension with %d vectors", count)
	}

	body := data[vectorsHeaderSize:]
	if want := dim * count * 4; len(body) != want {
		return 0, 0, nil, corrupt("payload is %d bytes, want %d for %d x %d", len(body), want, count, dim)
	}

	vectors = make([]float32, dim*count)
	for i := range vectors {
		vectors[i] = math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:]))
	}
	return dim, count, vectors, nil
}

func readEvents(path string) ([]event.Event, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", EventsFile, err)
	}
	var events []event.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, &domain.IndexCorruptError{Artifact: EventsFile, Err: err}
	}
	return events, nil
}

// writeAtomic writes through a temp file in the target directory and renames it over path.
func writeAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	bw := bufio.NewWriter(tmp)
	if err = write(bw); err != nil {
		return err
	}
	if err = bw.Flush(); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
