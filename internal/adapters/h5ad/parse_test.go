package h5ad

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleListing = `/                        Group
/X                       Dataset {1000, 100}
/obs                     Group
/obs/_index              Dataset {1000}
/obs/cell_type           Group
/obs/cell_type/categories Dataset {3}
/obs/cell_type/codes     Dataset {1000}
/obs/genotype            Group
/obs/genotype/categories Dataset {2}
/obs/genotype/codes      Dataset {1000}
/obs/n_genes             Dataset {1000}
/var                     Group
/var/_index              Dataset {100}
`

const sampleCategoriesDump = `HDF5 "test_experiment.h5ad" {
DATASET "/obs/genotype/categories" {
   DATATYPE  H5T_STRING {
      STRSIZE H5T_VARIABLE;
      STRPAD H5T_STR_NULLTERM;
      CSET H5T_CSET_UTF8;
      CTYPE H5T_C_S1;
   }
   DATASPACE  SIMPLE { ( 2 ) / ( 2 ) }
   DATA {
   (0): "KO", "WT"
   }
}
}
`

const sampleCodesDump = `HDF5 "test_experiment.h5ad" {
DATASET "/obs/genotype/codes" {
   DATATYPE  H5T_STD_I8LE
   DATASPACE  SIMPLE { ( 8 ) / ( 8 ) }
   DATA {
   (0): 1, 1, 1, 0,
   (4): 0, 0, 1, 0
   }
}
}
`

func TestParseObsColumns(t *testing.T) {
	cols := parseObsColumns(sampleListing)
	assert.Equal(t, []string{"cell_type", "genotype"}, cols)
}

func TestParseObsColumnsIgnoresNonCategorical(t *testing.T) {
	assert.Empty(t, parseObsColumns("/obs/n_genes Dataset {1000}\n/X Dataset {10, 10}\n"))
}

func TestParseStringData(t *testing.T) {
	got, err := parseStringData(sampleCategoriesDump)
	require.NoError(t, err)
	assert.Equal(t, []string{"KO", "WT"}, got)
}

func TestParseStringDataNoBlock(t *testing.T) {
	_, err := parseStringData("HDF5 \"x\" {\n}\n")
	require.Error(t, err)
}

func TestParseIntData(t *testing.T) {
	got, err := parseIntData(sampleCodesDump)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 0, 0, 0, 1, 0}, got)
}

func TestCountCodes(t *testing.T) {
	counts := countCodes([]int{1, 1, 1, 0, 0, 0, 1, 0}, 2)
	assert.Equal(t, []int{4, 4}, counts)

	// -1 marks missing values in pandas categoricals; ignore it.
	counts = countCodes([]int{0, -1, 1, 5}, 2)
	assert.Equal(t, []int{1, 1}, counts)
}
