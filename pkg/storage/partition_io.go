package storage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dsnet/compress/bzip2"
	da "github.com/lintang-b-s/Districtx/pkg/datastructure"
	"github.com/lintang-b-s/Districtx/pkg/partition"
	"github.com/lintang-b-s/Districtx/pkg/util"
)

/*
partition file (bzip2 compressed text), one line per node in node id order:

	<geoid>\t<district>
*/

func WritePartition(filename string, p *partition.Partition) error {
	f, err := os.Create(filename)
	if err != nil {
		return util.WrapErrorf(err, util.ErrIO, "create partition file %s", filename)
	}
	defer f.Close()

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	if err := EncodePartition(bz, p); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

func EncodePartition(out io.Writer, p *partition.Partition) error {
	w := bufio.NewWriter(out)
	g := p.GetGraph()
	for u := 0; u < g.NumberOfVertices(); u++ {
		fmt.Fprintf(w, "%s\t%d\n", g.GetVertex(da.Index(u)).GetGeoID(), p.DistrictOf(da.Index(u)))
	}
	return w.Flush()
}

// ReadPartition reads a partition file written for g back into a node to district mapping.
func ReadPartition(filename string, g *da.Graph) (map[da.Index]partition.DistrictID, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, util.WrapErrorf(err, util.ErrIO, "open partition file %s", filename)
	}
	defer f.Close()

	bz, err := bzip2.NewReader(f, nil)
	if err != nil {
		return nil, err
	}
	defer bz.Close()

	return DecodePartition(bz, g)
}

func DecodePartition(in io.Reader, g *da.Graph) (map[da.Index]partition.DistrictID, error) {
	br := bufio.NewReader(in)
	assignment := make(map[da.Index]partition.DistrictID, g.NumberOfVertices())
	for lineNo := 1; ; lineNo++ {
		line, err := util.ReadLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrIO, "read partition line %d", lineNo)
		}
		if line == "" {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) != 2 {
			return nil, util.WrapErrorf(nil, util.ErrBadParamInput, "partition line %d: expected 2 columns, got %d", lineNo, len(cols))
		}
		u, ok := g.GetVertexByGeoID(cols[0])
		if !ok {
			return nil, util.WrapErrorf(da.ErrVertexNotFound, util.ErrBadParamInput, "partition line %d: geoid %s", lineNo, cols[0])
		}
		d, err := strconv.Atoi(cols[1])
		if err != nil {
			return nil, util.WrapErrorf(err, util.ErrBadParamInput, "partition line %d: district %q", lineNo, cols[1])
		}
		assignment[u] = partition.DistrictID(d)
	}
	return assignment, nil
}
