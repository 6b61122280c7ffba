package store

import (
	"errors"
	"fmt"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/hack-pad/hackpadfs"
	"github.com/hack-pad/hackpadfs/mem"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
	"gopkg.in/yaml.v3"
)

const (
	journalFile = "file"
	journalDir  = "dir"
)

// fileStore is the implementation of the Store interface on a hackpadfs file system.
type fileStore struct {
	mu sync.Mutex

	fsys hackpadfs.FS
	root string

	journal     *leveldb.DB
	ownsJournal bool
	journalPath string
	namespace   string

	handles map[string]Handle
	paths   map[string]struct{}
}

// textureDescriptor is the serialized form of a registered texture.
type textureDescriptor struct {
	Name    string            `yaml:"name"`
	Image   Handle            `yaml:"image"`
	Sampler samplerDescriptor `yaml:"sampler"`
}

// samplerDescriptor is the serialized form of a sampler configuration.
type samplerDescriptor struct {
	AddressModeU  string  `yaml:"addressModeU"`
	AddressModeV  string  `yaml:"addressModeV"`
	AddressModeW  string  `yaml:"addressModeW"`
	MagFilter     string  `yaml:"magFilter"`
	MinFilter     string  `yaml:"minFilter"`
	MipmapFilter  string  `yaml:"mipmapFilter"`
	LodMinClamp   float32 `yaml:"lodMinClamp"`
	LodMaxClamp   float32 `yaml:"lodMaxClamp"`
	MaxAnisotropy uint16  `yaml:"maxAnisotropy"`
}

var _ Store = &fileStore{}

// FileStoreBuilderOption is a functional option for configuring a file-backed Store.
type FileStoreBuilderOption func(*fileStore)

// WithFS sets the file system artifacts are written to.
// When not set, an in-memory file system is used.
//
// Parameters:
//   - fsys: a writable hackpadfs file system
//
// Returns:
//   - FileStoreBuilderOption: option function to set the file system
func WithFS(fsys hackpadfs.FS) FileStoreBuilderOption {
	return func(s *fileStore) {
		s.fsys = fsys
	}
}

// WithRoot sets the slash-separated directory all artifacts are written under.
//
// Parameters:
//   - root: the root directory inside the file system
//
// Returns:
//   - FileStoreBuilderOption: option function to set the root
func WithRoot(root string) FileStoreBuilderOption {
	return func(s *fileStore) {
		s.root = path.Clean(strings.TrimPrefix(root, "/"))
	}
}

// WithJournal shares an open LevelDB journal between stores. The store does not close it.
// Stores sharing a journal must use distinct namespaces.
//
// Parameters:
//   - db: the open journal database
//
// Returns:
//   - FileStoreBuilderOption: option function to set the journal
func WithJournal(db *leveldb.DB) FileStoreBuilderOption {
	return func(s *fileStore) {
		s.journal = db
		s.ownsJournal = false
	}
}

// WithJournalPath opens a LevelDB journal on disk at the given path. The store closes it.
// When neither this nor WithJournal is set, an in-memory journal is used.
//
// Parameters:
//   - journalPath: the OS path of the journal directory
//
// Returns:
//   - FileStoreBuilderOption: option function to set the journal path
func WithJournalPath(journalPath string) FileStoreBuilderOption {
	return func(s *fileStore) {
		s.journalPath = journalPath
	}
}

// WithNamespace sets the key prefix of this store's journal entries.
//
// Parameters:
//   - namespace: the journal namespace
//
// Returns:
//   - FileStoreBuilderOption: option function to set the namespace
func WithNamespace(namespace string) FileStoreBuilderOption {
	return func(s *fileStore) {
		s.namespace = namespace
	}
}

// NewFileStore creates a Store that writes YAML artifacts and raw image bytes to a file system and
// journals every written path for Clean.
//
// Parameters:
//   - options: variadic list of FileStoreBuilderOption to configure the store
//
// Returns:
//   - Store: the new store
//   - error: error if the file system or the journal cannot be opened
func NewFileStore(options ...FileStoreBuilderOption) (Store, error) {
	s := &fileStore{
		root:        ".",
		handles:     make(map[string]Handle),
		paths:       make(map[string]struct{}),
		ownsJournal: true,
	}
	for _, opt := range options {
		opt(s)
	}

	if s.fsys == nil {
		memFS, err := mem.NewFS()
		if err != nil {
			return nil, fmt.Errorf("failed to create memory file system: %w", err)
		}
		s.fsys = memFS
	}
	if s.namespace == "" {
		s.namespace = uuid.NewString()
	}

	if s.journal == nil {
		var err error
		if s.journalPath != "" {
			s.journal, err = leveldb.OpenFile(s.journalPath, nil)
		} else {
			s.journal, err = leveldb.Open(storage.NewMemStorage(), nil)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to open journal: %w", err)
		}
		s.ownsJournal = true
	}
	return s, nil
}

func (s *fileStore) RegisterImage(index int, name string, data []byte) (Handle, error) {
	ext := "bin"
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		ext = kind.Extension
	}
	return s.write(KindImage, indexKey(KindImage, index, name), name, "Textures", ext, func() ([]byte, error) {
		return data, nil
	})
}

func (s *fileStore) RegisterTexture(index int, name string, image Handle, sampler common.SamplerStagingData) (Handle, error) {
	desc := textureDescriptor{
		Name:  name,
		Image: image,
		Sampler: samplerDescriptor{
			AddressModeU:  sampler.AddressModeU.String(),
			AddressModeV:  sampler.AddressModeV.String(),
			AddressModeW:  sampler.AddressModeW.String(),
			MagFilter:     sampler.MagFilter.String(),
			MinFilter:     sampler.MinFilter.String(),
			MipmapFilter:  sampler.MipmapFilter.String(),
			LodMinClamp:   sampler.LodMinClamp,
			LodMaxClamp:   sampler.LodMaxClamp,
			MaxAnisotropy: sampler.MaxAnisotropy,
		},
	}
	return s.write(KindTexture, indexKey(KindTexture, index, name), name, "Textures", "tex.yaml", func() ([]byte, error) {
		return yaml.Marshal(&desc)
	})
}

func (s *fileStore) SaveMaterial(index int, name string, material any) (Handle, error) {
	return s.write(KindMaterial, indexKey(KindMaterial, index, name), name, "Materials", "mat.yaml", func() ([]byte, error) {
		return yaml.Marshal(material)
	})
}

func (s *fileStore) SaveMesh(name string, mesh any) (Handle, error) {
	return s.write(KindMesh, string(KindMesh)+"/"+name, name, "Meshes", "mesh.yaml", func() ([]byte, error) {
		return yaml.Marshal(mesh)
	})
}

func (s *fileStore) SavePrefab(destination string, root any) (Handle, error) {
	destination = path.Clean(strings.TrimPrefix(destination, "/"))
	dir, file := path.Split(destination)
	name := strings.TrimSuffix(file, ".prefab.yaml")
	return s.write(KindPrefab, string(KindPrefab)+"/"+destination, name, path.Clean(dir), "prefab.yaml", func() ([]byte, error) {
		return yaml.Marshal(root)
	})
}

func (s *fileStore) Artifacts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	_ = s.eachJournalEntry(func(p, kind string) error {
		if kind == journalFile {
			out = append(out, p)
		}
		return nil
	})
	slices.Sort(out)
	return out
}

func (s *fileStore) Clean() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var files, dirs []string
	if err := s.eachJournalEntry(func(p, kind string) error {
		if kind == journalDir {
			dirs = append(dirs, p)
		} else {
			files = append(files, p)
		}
		return nil
	}); err != nil {
		return err
	}

	var errs []error
	for _, f := range files {
		if err := hackpadfs.Remove(s.fsys, f); err != nil && !errors.Is(err, hackpadfs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("failed to remove %s: %w", f, err))
		}
	}

	// deepest directories first; a directory that still holds foreign files is left in place
	slices.SortFunc(dirs, func(a, b string) int { return strings.Count(b, "/") - strings.Count(a, "/") })
	for _, d := range dirs {
		_ = hackpadfs.Remove(s.fsys, d)
	}

	if err := s.forget(); err != nil {
		errs = append(errs, err)
	}
	s.handles = make(map[string]Handle)
	s.paths = make(map[string]struct{})
	return errors.Join(errs...)
}

func (s *fileStore) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forget()
}

func (s *fileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.journal == nil {
		return nil
	}
	var err error
	if s.ownsJournal {
		err = s.journal.Close()
	}
	s.journal = nil
	return err
}

// --- Helper Functions ---

// write persists one artifact once per key. The path is journaled before the file is written.
func (s *fileStore) write(kind Kind, key, name, dir, ext string, encode func() ([]byte, error)) (Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.handles[key]; ok {
		return h, nil
	}
	if s.journal == nil {
		return Handle{}, fmt.Errorf("store is closed")
	}

	data, err := encode()
	if err != nil {
		return Handle{}, fmt.Errorf("failed to encode %s %q: %w", kind, name, err)
	}

	dir = path.Join(s.root, dir)
	if err := s.mkdirAll(dir); err != nil {
		return Handle{}, err
	}

	p := s.uniquePath(dir, common.Coalesce(common.CleanName(name), string(kind)), ext)
	if err := s.journal.Put(s.journalKey(p), []byte(journalFile), nil); err != nil {
		return Handle{}, fmt.Errorf("failed to journal %s: %w", p, err)
	}
	if err := hackpadfs.WriteFullFile(s.fsys, p, data, 0o644); err != nil {
		return Handle{}, fmt.Errorf("failed to write %s: %w", p, err)
	}

	h := Handle{ID: uuid.New(), Kind: kind, Name: name, Path: p}
	s.handles[key] = h
	return h, nil
}

// mkdirAll creates dir and journals every directory it had to create.
func (s *fileStore) mkdirAll(dir string) error {
	if dir == "." || dir == "" {
		return nil
	}

	var missing []string
	for d := dir; d != "." && d != "/" && d != ""; d = path.Dir(d) {
		if _, err := hackpadfs.Stat(s.fsys, d); err == nil {
			break
		}
		missing = append(missing, d)
	}

	for _, d := range missing {
		if err := s.journal.Put(s.journalKey(d), []byte(journalDir), nil); err != nil {
			return fmt.Errorf("failed to journal %s: %w", d, err)
		}
	}
	if err := hackpadfs.MkdirAll(s.fsys, dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// uniquePath returns dir/base.ext, suffixed with _<n> when that path is already taken in this store
// or on the file system.
func (s *fileStore) uniquePath(dir, base, ext string) string {
	p := path.Join(dir, base+"."+ext)
	for n := 1; ; n++ {
		if _, taken := s.paths[p]; !taken {
			if _, err := hackpadfs.Stat(s.fsys, p); err != nil {
				break
			}
		}
		p = path.Join(dir, base+"_"+strconv.Itoa(n)+"."+ext)
	}
	s.paths[p] = struct{}{}
	return p
}

func (s *fileStore) journalKey(p string) []byte {
	return []byte(s.namespace + "/" + p)
}

// eachJournalEntry visits every journaled path of this store's namespace.
func (s *fileStore) eachJournalEntry(fn func(p, kind string) error) error {
	if s.journal == nil {
		return nil
	}
	prefix := s.namespace + "/"
	iter := s.journal.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	defer iter.Release()

	for iter.Next() {
		if err := fn(strings.TrimPrefix(string(iter.Key()), prefix), string(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

// forget deletes every journal entry of this store's namespace.
func (s *fileStore) forget() error {
	if s.journal == nil {
		return nil
	}
	batch := new(leveldb.Batch)
	prefix := s.namespace + "/"
	iter := s.journal.NewIterator(util.BytesPrefix([]byte(prefix)), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to read journal: %w", err)
	}
	if err := s.journal.Write(batch, nil); err != nil {
		return fmt.Errorf("failed to clear journal: %w", err)
	}
	return nil
}

// indexKey keys an artifact by document index, or by name when index is negative.
func indexKey(kind Kind, index int, name string) string {
	if index < 0 {
		return string(kind) + "/name/" + name
	}
	return string(kind) + "/" + strconv.Itoa(index)
}
