package traversal

import (
	"sort"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
)

// Seams returns every relationship flagged as crossing a language
// boundary, ordered by (sourceLanguage, targetLanguage, sourceId),
// paginated.
func Seams(s *graph.Store, offset, limit int) ([]graph.Relationship, int, error) {
	var seams []graph.Relationship
	for _, rel := range s.AllRelationships() {
		if rel.IsSeam {
			seams = append(seams, rel)
		}
	}

	endpointOf := make(map[string]graph.Node, len(seams)*2)
	resolve := func(id string) graph.Node {
		if n, ok := endpointOf[id]; ok {
			return n
		}
		n, _ := s.GetNode(id)
		endpointOf[id] = n
		return n
	}

	sort.Slice(seams, func(i, j int) bool {
		srcA, srcB := resolve(seams[i].SourceID), resolve(seams[j].SourceID)
		if srcA.Language != srcB.Language {
			return srcA.Language < srcB.Language
		}
		tgtA, tgtB := resolve(seams[i].TargetID), resolve(seams[j].TargetID)
		if tgtA.Language != tgtB.Language {
			return tgtA.Language < tgtB.Language
		}
		return seams[i].SourceID < seams[j].SourceID
	})

	total := len(seams)
	idx := paginate(total, offset, limit)
	out := make([]graph.Relationship, 0, len(idx))
	for _, i := range idx {
		out = append(out, seams[i])
	}
	return out, total, nil
}
