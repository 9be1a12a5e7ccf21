package graph

import (
	"sort"
	"strings"
	"sync"

	apperrors "github.com/ajacobm/code-graph-mcp-sub002/pkg/errors"
)

// UpsertResult reports what an Upsert actually did, so callers (and the
// CDC bus) know whether a mutation is observable.
type UpsertResult int

const (
	Unchanged UpsertResult = iota
	Added
	Updated
)

// Notifier receives exactly one callback per observable mutation. The
// store never mutates without calling it (Restore, a structural reset,
// is the one exception), and never calls it for a no-op (Unchanged)
// result. cdc.Bus is the production implementation;
// tests may substitute a recording fake.
type Notifier interface {
	NodeAdded(Node)
	NodeUpdated(Node)
	NodeRemoved(id string)
	RelationshipAdded(Relationship)
	RelationshipRemoved(Relationship)
}

// noopNotifier discards every callback; used when a Store is built
// without a bus attached (e.g. in algorithm unit tests).
type noopNotifier struct{}

func (noopNotifier) NodeAdded(Node)                     {}
func (noopNotifier) NodeUpdated(Node)                   {}
func (noopNotifier) NodeRemoved(string)                 {}
func (noopNotifier) RelationshipAdded(Relationship)     {}
func (noopNotifier) RelationshipRemoved(Relationship)   {}

// Stats summarizes the current graph contents.
type Stats struct {
	TotalNodes         int
	TotalRelationships int
	Languages          map[string]int
	Kinds              map[string]int
}

// Store is the single in-memory graph instance. All node and
// relationship records are owned exclusively by the Store; readers
// (traversal, the query facade) take the read lock for the minimal time
// needed to copy the structures they need, per the concurrency
// discipline in §5.
type Store struct {
	mu sync.RWMutex

	nodes map[string]Node
	// insertion-ordered relationship keys, indexed for O(1)+O(degree)
	// adjacency walks.
	relationships map[triple]Relationship
	outgoing      map[string][]triple
	incoming      map[string][]triple

	nameIndex map[string]map[string]struct{}
	fileIndex map[string]map[string]struct{}

	languages map[string]int
	kinds     map[string]int

	notifier Notifier
}

// New creates an empty Store. Pass nil for notifier to get a Store that
// mutates silently (useful for tests of the traversal library).
func New(notifier Notifier) *Store {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &Store{
		nodes:         make(map[string]Node),
		relationships: make(map[triple]Relationship),
		outgoing:      make(map[string][]triple),
		incoming:      make(map[string][]triple),
		nameIndex:     make(map[string]map[string]struct{}),
		fileIndex:     make(map[string]map[string]struct{}),
		languages:     make(map[string]int),
		kinds:         make(map[string]int),
		notifier:      notifier,
	}
}

// UpsertNode inserts or updates a node. A re-insertion of an existing id
// updates attributes in place and is reported as Updated (never as
// Added); an insertion whose attributes exactly match the existing
// record is Unchanged and emits nothing.
func (s *Store) UpsertNode(n Node) (UpsertResult, error) {
	if n.ID == "" {
		return Unchanged, apperrors.NewInvalidIdentifier("node id cannot be empty")
	}

	s.mu.Lock()
	existing, exists := s.nodes[n.ID]
	if exists && existing.sameAttributes(n) {
		s.mu.Unlock()
		return Unchanged, nil
	}

	if exists {
		s.unindexNode(existing)
	}
	s.nodes[n.ID] = n
	s.indexNode(n)
	s.mu.Unlock()

	if exists {
		s.notifier.NodeUpdated(n)
		return Updated, nil
	}
	s.notifier.NodeAdded(n)
	return Added, nil
}

func (s *Store) indexNode(n Node) {
	if s.nameIndex[n.Name] == nil {
		s.nameIndex[n.Name] = make(map[string]struct{})
	}
	s.nameIndex[n.Name][n.ID] = struct{}{}

	if s.fileIndex[n.File] == nil {
		s.fileIndex[n.File] = make(map[string]struct{})
	}
	s.fileIndex[n.File][n.ID] = struct{}{}

	s.languages[n.Language]++
	s.kinds[string(n.Kind)]++
}

func (s *Store) unindexNode(n Node) {
	delete(s.nameIndex[n.Name], n.ID)
	if len(s.nameIndex[n.Name]) == 0 {
		delete(s.nameIndex, n.Name)
	}
	delete(s.fileIndex[n.File], n.ID)
	if len(s.fileIndex[n.File]) == 0 {
		delete(s.fileIndex, n.File)
	}
	s.languages[n.Language]--
	if s.languages[n.Language] <= 0 {
		delete(s.languages, n.Language)
	}
	s.kinds[string(n.Kind)]--
	if s.kinds[string(n.Kind)] <= 0 {
		delete(s.kinds, string(n.Kind))
	}
}

// RemoveNode deletes a node and every relationship incident to it,
// atomically with respect to other store operations. Events fire for
// each removed edge first, then for the node, per the fixed order the
// invariants require. No-op (0, nil) if the node is absent.
func (s *Store) RemoveNode(id string) (int, error) {
	s.mu.Lock()
	node, exists := s.nodes[id]
	if !exists {
		s.mu.Unlock()
		return 0, nil
	}

	var removed []Relationship
	seen := make(map[triple]struct{})
	for _, t := range append(append([]triple{}, s.outgoing[id]...), s.incoming[id]...) {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		if rel, ok := s.relationships[t]; ok {
			removed = append(removed, rel)
		}
	}
	for _, rel := range removed {
		s.removeRelationshipLocked(rel)
	}

	s.unindexNode(node)
	delete(s.nodes, id)
	delete(s.outgoing, id)
	delete(s.incoming, id)
	s.mu.Unlock()

	for _, rel := range removed {
		s.notifier.RelationshipRemoved(rel)
	}
	s.notifier.NodeRemoved(id)

	return len(removed), nil
}

// UpsertRelationship inserts a relationship. Both endpoints must already
// exist. isSeam is derived from the endpoints' languages (or honored if
// the caller already marked the relationship a seam). Duplicate inserts
// of the same (source, target, type) triple are idempotent and emit
// nothing.
func (s *Store) UpsertRelationship(r Relationship) (UpsertResult, error) {
	s.mu.Lock()
	source, sourceOK := s.nodes[r.SourceID]
	target, targetOK := s.nodes[r.TargetID]
	if !sourceOK || !targetOK {
		s.mu.Unlock()
		return Unchanged, apperrors.NewMissingEndpoint("relationship endpoint(s) not present in store")
	}

	r.IsSeam = deriveSeam(source.Language, target.Language, r.IsSeam || r.Type == RelationSeam)

	key := r.key()
	if existing, exists := s.relationships[key]; exists {
		s.mu.Unlock()
		_ = existing
		return Unchanged, nil
	}

	s.relationships[key] = r
	s.outgoing[r.SourceID] = append(s.outgoing[r.SourceID], key)
	s.incoming[r.TargetID] = append(s.incoming[r.TargetID], key)
	s.mu.Unlock()

	s.notifier.RelationshipAdded(r)
	return Added, nil
}

// RemoveRelationship deletes a single relationship. Returns false if it
// was not present.
func (s *Store) RemoveRelationship(sourceID, targetID string, typ RelationshipType) (bool, error) {
	s.mu.Lock()
	t := triple{source: sourceID, target: targetID, typ: typ}
	rel, exists := s.relationships[t]
	if !exists {
		s.mu.Unlock()
		return false, nil
	}
	s.removeRelationshipLocked(rel)
	s.mu.Unlock()

	s.notifier.RelationshipRemoved(rel)
	return true, nil
}

// removeRelationshipLocked removes rel's bookkeeping; caller holds s.mu.
func (s *Store) removeRelationshipLocked(rel Relationship) {
	key := rel.key()
	delete(s.relationships, key)
	s.outgoing[rel.SourceID] = removeTriple(s.outgoing[rel.SourceID], key)
	s.incoming[rel.TargetID] = removeTriple(s.incoming[rel.TargetID], key)
}

func removeTriple(list []triple, t triple) []triple {
	for i, v := range list {
		if v == t {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// GetNode returns the node with the given id, or (Node{}, false) if
// absent.
func (s *Store) GetNode(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// OutgoingEdges returns the relationships whose source is id, in
// insertion order.
func (s *Store) OutgoingEdges(id string) []Relationship {
	return s.edgesFor(s.outgoing, id)
}

// IncomingEdges returns the relationships whose target is id, in
// insertion order.
func (s *Store) IncomingEdges(id string) []Relationship {
	return s.edgesFor(s.incoming, id)
}

func (s *Store) edgesFor(index map[string][]triple, id string) []Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := index[id]
	out := make([]Relationship, 0, len(keys))
	for _, k := range keys {
		if rel, ok := s.relationships[k]; ok {
			out = append(out, rel)
		}
	}
	return out
}

// snapshotAdjacency copies the outgoing-edge relationships for every id
// in ids under a single read lock. It is unexported and has no caller;
// the traversal package reads adjacency through OutgoingEdges and
// IncomingEdges instead.
func (s *Store) snapshotAdjacency(ids []string) map[string][]Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]Relationship, len(ids))
	for _, id := range ids {
		keys := s.outgoing[id]
		rels := make([]Relationship, 0, len(keys))
		for _, k := range keys {
			if rel, ok := s.relationships[k]; ok {
				rels = append(rels, rel)
			}
		}
		out[id] = rels
	}
	return out
}

// snapshotNode is an unexported equivalent of GetNode with no caller;
// returns ok=false if id is absent.
func (s *Store) snapshotNode(id string) (Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.nodes[id]
	return n, ok
}

// matchRank classifies how a candidate name matches a search query, used
// to order SearchByName results.
type matchRank int

const (
	rankNone matchRank = iota
	rankSubstring
	rankPrefix
	rankCaseInsensitiveExact
	rankExact
)

func rankOf(query, candidate string) matchRank {
	if candidate == query {
		return rankExact
	}
	lowerCandidate, lowerQuery := strings.ToLower(candidate), strings.ToLower(query)
	if lowerCandidate == lowerQuery {
		return rankCaseInsensitiveExact
	}
	if strings.HasPrefix(lowerCandidate, lowerQuery) {
		return rankPrefix
	}
	if strings.Contains(lowerCandidate, lowerQuery) {
		return rankSubstring
	}
	return rankNone
}

// SearchByName ranks nodes by how closely their name matches prefix:
// exact > case-insensitive exact > prefix > substring, ties broken by
// ascending file then line. Returns the page (offset, limit) and the
// total number of matches.
func (s *Store) SearchByName(prefix string, language, kind string, offset, limit int) ([]Node, int) {
	s.mu.RLock()
	candidates := make([]Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		candidates = append(candidates, n)
	}
	s.mu.RUnlock()

	type ranked struct {
		node Node
		rank matchRank
	}
	var matches []ranked
	for _, n := range candidates {
		if language != "" && !strings.EqualFold(n.Language, language) {
			continue
		}
		if kind != "" && !strings.EqualFold(string(n.Kind), kind) {
			continue
		}
		r := rankOf(prefix, n.Name)
		if r == rankNone {
			continue
		}
		matches = append(matches, ranked{node: n, rank: r})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].rank != matches[j].rank {
			return matches[i].rank > matches[j].rank
		}
		if matches[i].node.File != matches[j].node.File {
			return matches[i].node.File < matches[j].node.File
		}
		if matches[i].node.Line != matches[j].node.Line {
			return matches[i].node.Line < matches[j].node.Line
		}
		return matches[i].node.ID < matches[j].node.ID
	})

	total := len(matches)
	page := paginate(total, offset, limit)
	out := make([]Node, 0, len(page))
	for _, i := range page {
		out = append(out, matches[i].node)
	}
	return out, total
}

// paginate returns the slice indexes [offset, offset+limit) clamped to
// [0, total), the shared paging contract every list query follows.
func paginate(total, offset, limit int) []int {
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return nil
	}
	end := total
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	idx := make([]int, 0, end-offset)
	for i := offset; i < end; i++ {
		idx = append(idx, i)
	}
	return idx
}

// Stats summarizes the current graph.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalNodes:         len(s.nodes),
		TotalRelationships: len(s.relationships),
		Languages:          make(map[string]int, len(s.languages)),
		Kinds:              make(map[string]int, len(s.kinds)),
	}
	for k, v := range s.languages {
		st.Languages[k] = v
	}
	for k, v := range s.kinds {
		st.Kinds[k] = v
	}
	return st
}

// AllNodeIDs returns every node id currently in the store, in no
// particular order; used by categorization (entry points, hubs, leaves).
func (s *Store) AllNodeIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	return ids
}

// AllRelationships returns every relationship currently in the store, in
// no particular order; used by seam listing and subgraph extraction.
func (s *Store) AllRelationships() []Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Relationship, 0, len(s.relationships))
	for _, r := range s.relationships {
		out = append(out, r)
	}
	return out
}

// Checkpoint is an opaque, deep-copied snapshot of the store's contents,
// taken before an ingestion batch begins. Restore puts the store back
// into exactly this state, per the batch rollback invariant in §4.7: a
// failed batch leaves the graph exactly as it was before the batch
// began. Checkpointing never fires Notifier callbacks; Restore is a
// structural reset, not a sequence of observable mutations.
type Checkpoint struct {
	nodes         map[string]Node
	relationships map[triple]Relationship
	outgoing      map[string][]triple
	incoming      map[string][]triple
	nameIndex     map[string]map[string]struct{}
	fileIndex     map[string]map[string]struct{}
	languages     map[string]int
	kinds         map[string]int
}

// Checkpoint captures the store's current contents. The returned value
// is safe to hold across the lifetime of one ingestion batch; later
// mutations do not alias into it.
func (s *Store) Checkpoint() *Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &Checkpoint{
		nodes:         copyNodes(s.nodes),
		relationships: copyRelationships(s.relationships),
		outgoing:      copyTripleIndex(s.outgoing),
		incoming:      copyTripleIndex(s.incoming),
		nameIndex:     copyStringSetIndex(s.nameIndex),
		fileIndex:     copyStringSetIndex(s.fileIndex),
		languages:     copyCounts(s.languages),
		kinds:         copyCounts(s.kinds),
	}
}

// Restore replaces the store's contents with cp, undoing every mutation
// applied since it was taken. It does not invoke Notifier: the caller
// (the ingestion coordinator) has already decided the batch is rolled
// back and emits its own analysis_failed event instead of a stream of
// per-mutation reversals.
func (s *Store) Restore(cp *Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = copyNodes(cp.nodes)
	s.relationships = copyRelationships(cp.relationships)
	s.outgoing = copyTripleIndex(cp.outgoing)
	s.incoming = copyTripleIndex(cp.incoming)
	s.nameIndex = copyStringSetIndex(cp.nameIndex)
	s.fileIndex = copyStringSetIndex(cp.fileIndex)
	s.languages = copyCounts(cp.languages)
	s.kinds = copyCounts(cp.kinds)
}

func copyNodes(in map[string]Node) map[string]Node {
	out := make(map[string]Node, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyRelationships(in map[triple]Relationship) map[triple]Relationship {
	out := make(map[triple]Relationship, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func copyTripleIndex(in map[string][]triple) map[string][]triple {
	out := make(map[string][]triple, len(in))
	for k, v := range in {
		cp := make([]triple, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

func copyStringSetIndex(in map[string]map[string]struct{}) map[string]map[string]struct{} {
	out := make(map[string]map[string]struct{}, len(in))
	for k, v := range in {
		inner := make(map[string]struct{}, len(v))
		for id := range v {
			inner[id] = struct{}{}
		}
		out[k] = inner
	}
	return out
}

func copyCounts(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
