package store

import (
	"strings"

	"github.com/google/uuid"

	"github.com/aegishub/hub/internal/model"
)

// Key layout, exactly as specified:
//
//	primary:        {kind}:{uuid}
//	author index:   idx:author:{agent_uuid}:{kind}:{uuid}
//	tag name index: idx:tag_name:{name}
//	rel source idx: idx:rel_src:{source_uuid}:{uuid}
//	rel target idx: idx:rel_tgt:{target_uuid}:{uuid}
//	frag proj idx:  idx:frag_proj:{project_uuid}:{uuid}
//
// Badger orders keys byte-lexicographically, so every prefix below doubles
// as a range-scan bound: seeking "idx:author:A:" and iterating while the key
// has that prefix visits exactly that agent's entries, in key order.

func primaryKey(kind model.Kind, id uuid.UUID) []byte {
	return []byte(string(kind) + ":" + id.String())
}

func authorIndexKey(agent uuid.UUID, kind model.Kind, id uuid.UUID) []byte {
	return []byte("idx:author:" + agent.String() + ":" + string(kind) + ":" + id.String())
}

func authorIndexPrefix(agent uuid.UUID, kind model.Kind) []byte {
	return []byte("idx:author:" + agent.String() + ":" + string(kind) + ":")
}

func tagNameIndexKey(name string) []byte {
	return []byte("idx:tag_name:" + name)
}

func relSrcIndexKey(source, id uuid.UUID) []byte {
	return []byte("idx:rel_src:" + source.String() + ":" + id.String())
}

func relSrcIndexPrefix(source uuid.UUID) []byte {
	return []byte("idx:rel_src:" + source.String() + ":")
}

func relTgtIndexKey(target, id uuid.UUID) []byte {
	return []byte("idx:rel_tgt:" + target.String() + ":" + id.String())
}

func relTgtIndexPrefix(target uuid.UUID) []byte {
	return []byte("idx:rel_tgt:" + target.String() + ":")
}

func fragProjIndexKey(project, id uuid.UUID) []byte {
	return []byte("idx:frag_proj:" + project.String() + ":" + id.String())
}

func fragmentPrefix() []byte {
	return []byte(string(model.KindFragment) + ":")
}

// idFromIndexKey extracts the trailing UUID segment of an index key, which
// is always the last ':'-delimited field by construction above.
func idFromIndexKey(key []byte) (uuid.UUID, error) {
	s := string(key)
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return uuid.UUID{}, errMalformedIndexKey(s)
	}
	return uuid.Parse(s[i+1:])
}
