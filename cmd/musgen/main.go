package main

import (
	"os"
	"reflect"
	"strings"

	musgen "github.com/mus-format/musgen-go/mus"
	genops "github.com/mus-format/musgen-go/options/generate"
	structops "github.com/mus-format/musgen-go/options/struct"
	typeops "github.com/mus-format/musgen-go/options/type"
	"github.com/nmogil/compliance-iq-sub003/core"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		panic(err)
	}
	// If we're in the core subpackage, cd up to project root
	if strings.HasSuffix(cwd, "core") {
		if err := os.Chdir(".."); err != nil {
			panic(err)
		}
	}
	g, err := musgen.NewCodeGenerator(
		genops.WithPkgPath("github.com/nmogil/compliance-iq-sub003/core"),
	)
	if err != nil {
		panic(err)
	}

	g.AddDefinedType(reflect.TypeFor[core.SourceType]())
	g.AddDefinedType(reflect.TypeFor[core.ID]())

	// Unix micro timestamps
	opts := typeops.WithTimeUnit(typeops.Micro)
	err = g.AddStruct(reflect.TypeFor[core.Chunk](),
		structops.WithField(), // Id
		structops.WithField(), // ChunkID
		structops.WithField(), // SourceID
		structops.WithField(), // SourceType
		structops.WithField(), // JurisdictionCode
		structops.WithField(), // Title
		structops.WithField(), // Category
		structops.WithField(), // Citation
		structops.WithField(), // Text
		structops.WithField(), // TokenCount
		structops.WithField(), // Vector
		structops.WithField(opts), // IndexedAt
		structops.WithField(opts), // LastUpdated
		structops.WithField(opts), // InsertedAt
		structops.WithField(opts)) // UpdatedAt
	if err != nil {
		panic(err)
	}

	bs, err := g.Generate()
	if err != nil {
		panic(err)
	}

	err = os.WriteFile("./core/records_mus.gen.go", bs, 0644)
	if err != nil {
		panic(err)
	}
}
