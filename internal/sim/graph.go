package sim

// #region imports
import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/awalterschulze/gographviz"

	"github.com/danielpatrickdp/threshold-circuit/internal/detect"
)

// #endregion

// #region graph-types
type edge struct {
	src string
	dst string
}

// stateGraph is a small directed graph with deterministic iteration:
// nodes and edges keep insertion order so that scenario transforms (which
// slice and sample them) behave identically for identical seeds.
type stateGraph struct {
	nodes    []string
	nodeSet  map[string]struct{}
	nodeType map[string]string
	edges    []edge
	edgeSet  map[edge]struct{}
}

func newStateGraph() *stateGraph {
	return &stateGraph{
		nodeSet:  make(map[string]struct{}),
		nodeType: make(map[string]string),
		edgeSet:  make(map[edge]struct{}),
	}
}

// #endregion graph-types

// #region graph-ops
func (g *stateGraph) addNode(id, kind string) {
	if _, ok := g.nodeSet[id]; ok {
		return
	}
	g.nodes = append(g.nodes, id)
	g.nodeSet[id] = struct{}{}
	g.nodeType[id] = kind
}

func (g *stateGraph) addEdge(src, dst string) {
	e := edge{src, dst}
	if _, ok := g.edgeSet[e]; ok {
		return
	}
	g.edges = append(g.edges, e)
	g.edgeSet[e] = struct{}{}
}

func (g *stateGraph) removeEdge(src, dst string) {
	e := edge{src, dst}
	if _, ok := g.edgeSet[e]; !ok {
		return
	}
	delete(g.edgeSet, e)
	for i, ex := range g.edges {
		if ex == e {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
}

func (g *stateGraph) removeNode(id string) {
	if _, ok := g.nodeSet[id]; !ok {
		return
	}
	delete(g.nodeSet, id)
	delete(g.nodeType, id)
	for i, n := range g.nodes {
		if n == id {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.src == id || e.dst == id {
			delete(g.edgeSet, e)
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
}

func (g *stateGraph) successors(id string) []string {
	var out []string
	for _, e := range g.edges {
		if e.src == id {
			out = append(out, e.dst)
		}
	}
	return out
}

func (g *stateGraph) clone() *stateGraph {
	c := newStateGraph()
	for _, n := range g.nodes {
		c.addNode(n, g.nodeType[n])
	}
	for _, e := range g.edges {
		c.addEdge(e.src, e.dst)
	}
	return c
}

// #endregion graph-ops

// #region fingerprint
// fingerprint hashes the sorted node and edge sets, so identical structure
// yields an identical hash regardless of construction order.
func (g *stateGraph) fingerprint() string {
	nodes := make([]string, len(g.nodes))
	copy(nodes, g.nodes)
	sort.Strings(nodes)

	edges := make([]string, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, e.src+"->"+e.dst)
	}
	sort.Strings(edges)

	content := strings.Join(nodes, ",") + "|" + strings.Join(edges, ",")
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])[:16]
}

// #endregion fingerprint

// #region build-from-event
// maxLeafNodes caps graph size for high file-count events.
const maxLeafNodes = 200

// buildStateFromEvent shapes an initial graph from the event's metric kind:
// count metrics become leaves under a root, depth metrics a chain,
// self-reference metrics nodes with self-loops, everything else a single
// generic node.
func buildStateFromEvent(event detect.Event) *stateGraph {
	g := newStateGraph()
	g.addNode("root", "directory")

	switch event.Metric {
	case detect.MetricFileCount:
		count := int(event.Value)
		if count > maxLeafNodes {
			count = maxLeafNodes
		}
		for i := 0; i < count; i++ {
			id := fmt.Sprintf("file_%d", i)
			g.addNode(id, "file")
			g.addEdge("root", id)
		}

	case detect.MetricDirectoryDepth:
		parent := "root"
		for d := 0; d < int(event.Value); d++ {
			id := fmt.Sprintf("dir_level_%d", d)
			g.addNode(id, "directory")
			g.addEdge(parent, id)
			parent = id
		}

	case detect.MetricSelfReference:
		for i := 0; i < int(event.Value); i++ {
			id := fmt.Sprintf("self_ref_%d", i)
			g.addNode(id, "self_referencing")
			g.addEdge("root", id)
			g.addEdge(id, id)
		}

	default:
		g.addNode("generic_state", "generic")
		g.addEdge("root", "generic_state")
	}

	return g
}

// #endregion build-from-event

// #region dot-export
// StateDOT renders the initial state graph for an event in Graphviz DOT
// form, for inspection tooling.
func StateDOT(event detect.Event) (string, error) {
	g := buildStateFromEvent(event)

	dot := gographviz.NewGraph()
	if err := dot.SetName("state"); err != nil {
		return "", fmt.Errorf("dot name: %w", err)
	}
	if err := dot.SetDir(true); err != nil {
		return "", fmt.Errorf("dot dir: %w", err)
	}

	for _, n := range g.nodes {
		attrs := map[string]string{"label": fmt.Sprintf("%q", n)}
		if g.nodeType[n] == "directory" {
			attrs["shape"] = "box"
		}
		if err := dot.AddNode("state", fmt.Sprintf("%q", n), attrs); err != nil {
			return "", fmt.Errorf("dot node %s: %w", n, err)
		}
	}
	for _, e := range g.edges {
		if err := dot.AddEdge(fmt.Sprintf("%q", e.src), fmt.Sprintf("%q", e.dst), true, nil); err != nil {
			return "", fmt.Errorf("dot edge %s->%s: %w", e.src, e.dst, err)
		}
	}

	return dot.String(), nil
}

// #endregion dot-export
