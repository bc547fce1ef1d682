package datastructure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/Districtx/pkg/util"
)

/*
graph file (bzip2 compressed text):

	<number of vertices> <number of edges>
	<id>\t<geoid>\t<lat>\t<lon>\t<attr=val;...>\t<label=val;...>\t<list=a,b;...>   (one line per vertex)
	<u> <v>                                                                       (one line per edge)

empty attribute/label/list sections are written as "-". keys and values must not contain tab, ';', '=' or ','.
*/

const emptySection = "-"

func (g *Graph) WriteGraph(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return util.WrapErrorf(err, util.ErrIO, "create graph file %s", filename)
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	if err := g.Encode(bz); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

// Encode writes the uncompressed graph text format to w.
func (g *Graph) Encode(out io.Writer) error {
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "%d %d\n", len(g.vertices), len(g.edges))
	for _, v := range g.vertices {
		latF := strconv.FormatFloat(v.lat, 'f', -1, 64)
		lonF := strconv.FormatFloat(v.lon, 'f', -1, 64)
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n", v.id, v.geoID, latF, lonF,
			encodeAttrs(v.attrs), encodeLabels(v.labels), encodeLists(v.lists))
	}

	for _, e := range g.edges {
		fmt.Fprintf(w, "%d %d\n", e.u, e.v)
	}

	return w.Flush()
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeAttrs(attrs map[string]float64) string {
	if len(attrs) == 0 {
		return emptySection
	}
	parts := make([]string, 0, len(attrs))
	for _, k := range sortedKeys(attrs) {
		parts = append(parts, k+"="+strconv.FormatFloat(attrs[k], 'f', -1, 64))
	}
	return strings.Join(parts, ";")
}

func encodeLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return emptySection
	}
	parts := make([]string, 0, len(labels))
	for _, k := range sortedKeys(labels) {
		parts = append(parts, k+"="+labels[k])
	}
	return strings.Join(parts, ";")
}

func encodeLists(lists map[string][]string) string {
	if len(lists) == 0 {
		return emptySection
	}
	parts := make([]string, 0, len(lists))
	for _, k := range sortedKeys(lists) {
		parts = append(parts, k+"="+strings.Join(lists[k], ","))
	}
	return strings.Join(parts, ";")
}

func ReadGraph(filename string) (*Graph, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrIO, "open graph file %s", filename)
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	return DecodeGraph(bz)
}

// DecodeGraph reads the uncompressed graph text format from r.
func DecodeGraph(in io.Reader) (*Graph, error) {
	br := bufio.NewReader(in)

	line, err := util.ReadLine(br)
	if err != nil {
		return nil, err
	}
	tokens := strings.Fields(line)
	if len(tokens) != 2 {
		return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid graph header %q", line)
	}
	n, err := strconv.Atoi(tokens[0])
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid vertex count")
	}
	m, err := strconv.Atoi(tokens[1])
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrBadParamInput, "invalid edge count")
	}

	g := NewGraph()
	for i := 0; i < n; i++ {
		line, err = util.ReadLine(br)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrBadParamInput, "vertex %d", i)
		}
		if err := g.decodeVertex(line, i); err != nil {
			return nil, err
		}
	}

	for i := 0; i < m; i++ {
		line, err = util.ReadLine(br)
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrBadParamInput, "edge %d", i)
		}
		tokens = strings.Fields(line)
		if len(tokens) != 2 {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid edge line %q", line)
		}
		u, errU := strconv.ParseUint(tokens[0], 10, 32)
		v, errV := strconv.ParseUint(tokens[1], 10, 32)
		if errU != nil || errV != nil {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "invalid edge line %q", line)
		}
		if err := g.AddEdge(Index(u), Index(v)); err != nil {
			return nil, err
		}
	}

	return g, nil
}

func (g *Graph) decodeVertex(line string, expectedID int) error {
	cols := strings.Split(line, "\t")
	if len(cols) != 7 {
		return util.WrapErrorf(nil, util.ErrBadParamInput, "vertex %d: expected 7 columns, got %d", expectedID, len(cols))
	}
	id, err := strconv.Atoi(cols[0])
	if err != nil || id != expectedID {
		return util.WrapErrorf(err, util.ErrBadParamInput, "vertex %d: invalid id %q", expectedID, cols[0])
	}
	lat, err := strconv.ParseFloat(cols[2], 64)
	if err != nil {
		return util.WrapErrorf(err, util.ErrBadParamInput, "vertex %d: invalid lat", expectedID)
	}
	lon, err := strconv.ParseFloat(cols[3], 64)
	if err != nil {
		return util.WrapErrorf(err, util.ErrBadParamInput, "vertex %d: invalid lon", expectedID)
	}
	u, err := g.AddVertex(cols[1], lat, lon)
	if err != nil {
		return err
	}

	for _, kv := range splitSection(cols[4]) {
		val, err := strconv.ParseFloat(kv[1], 64)
		if err != nil {
			return util.WrapErrorf(err, util.ErrBadParamInput, "vertex %d: attribute %s", expectedID, kv[0])
		}
		g.SetAttribute(u, kv[0], val)
	}
	for _, kv := range splitSection(cols[5]) {
		g.SetLabel(u, kv[0], kv[1])
	}
	for _, kv := range splitSection(cols[6]) {
		items := []string{}
		if kv[1] != "" {
			items = strings.Split(kv[1], ",")
		}
		g.SetList(u, kv[0], items)
	}
	return nil
}

func splitSection(section string) [][2]string {
	if section == emptySection || section == "" {
		return nil
	}
	parts := strings.Split(section, ";")
	kvs := make([][2]string, 0, len(parts))
	for _, p := range parts {
		k, v, _ := strings.Cut(p, "=")
		kvs = append(kvs, [2]string{k, v})
	}
	return kvs
}
