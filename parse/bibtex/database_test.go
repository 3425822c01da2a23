package bibtex

import (
	"strings"
	"testing"
	"unsafe"

	"github.com/smartystreets/goconvey/convey"
)

const library = `@article{qm1,
  author = {Bohr, Niels},
  title = {Quantum Mechanics Revisited},
  journal = {Phys. Rev.},
  year = 2020
}
@Article{rel,
  author = {Einstein, Albert},
  title = {On Relativity},
  year = 1905
}
@book{qm2,
  author = {Dirac, Paul},
  title = {Principles of Quantum Theory},
  publisher = {Clarendon},
  year = 2020
}
@misc{web,
  title = {Qu},
  howpublished = {online}
}
`

func TestDuplicateKeys(t *testing.T) {
	convey.Convey("duplicate keys keep both entries and the last wins lookups", t, func() {
		src := `@article{dup, note = {first}}
@article{other, note = {x}}
@article{dup, note = {second}}`
		for _, threads := range []int{0, 2} {
			db, err := NewParser(Options{Threads: threads, MinChunkSize: 16, SearchWindow: 8}).ParseString(src)
			convey.So(err, convey.ShouldBeNil)
			convey.So(db.Len(), convey.ShouldEqual, 3)
			convey.So(db.Entries()[0].Get("note"), convey.ShouldEqual, "first")
			convey.So(db.Entries()[2].Get("note"), convey.ShouldEqual, "second")

			e, ok := db.FindByKey("dup")
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(e.Get("note"), convey.ShouldEqual, "second")

			dups := db.Duplicates()
			convey.So(len(dups), convey.ShouldEqual, 1)
			convey.So(dups[0].Key, convey.ShouldEqual, "dup")
			convey.So(dups[0].Entries[0], convey.ShouldEqual, db.Entries()[0])
			convey.So(dups[0].Entries[1], convey.ShouldEqual, db.Entries()[2])
		}
	})

	convey.Convey("keys are case-sensitive", t, func() {
		db, err := ParseString(`@misc{Key} @misc{key}`)
		convey.So(err, convey.ShouldBeNil)
		convey.So(db.Duplicates(), convey.ShouldBeEmpty)
		_, ok := db.FindByKey("KEY")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestQueries(t *testing.T) {
	for _, lazy := range []bool{false, true} {
		convey.Convey("queries over a small library", t, func() {
			db, err := NewParser(Options{LazyFieldIndex: lazy}).ParseString(library)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("by type ignores case", func() {
				arts := db.FindByType("ARTICLE")
				convey.So(len(arts), convey.ShouldEqual, 2)
				convey.So(arts[0].Key, convey.ShouldEqual, "qm1")
				convey.So(arts[1].Key, convey.ShouldEqual, "rel")
				convey.So(db.FindByType("phdthesis"), convey.ShouldBeEmpty)
				convey.So(db.Types(), convey.ShouldResemble, []string{"article", "book", "misc"})
			})

			convey.Convey("by field substring", func() {
				keys := func(es []*Entry) []string {
					out := []string{}
					for _, e := range es {
						out = append(out, e.Key)
					}
					return out
				}
				convey.So(keys(db.FindByField("title", "Quantum")), convey.ShouldResemble, []string{"qm1", "qm2"})
				convey.So(keys(db.FindByField("TITLE", "Quantum M")), convey.ShouldResemble, []string{"qm1"})
				convey.So(keys(db.FindByField("title", "Qu")), convey.ShouldResemble, []string{"qm1", "qm2", "web"})
				convey.So(keys(db.FindByField("title", "")), convey.ShouldResemble, []string{"qm1", "rel", "qm2", "web"})
				convey.So(db.FindByField("title", "quantum"), convey.ShouldBeEmpty)
				convey.So(db.FindByField("title", "Gravity"), convey.ShouldBeEmpty)
				convey.So(db.FindByField("nosuchfield", "x"), convey.ShouldBeEmpty)
				convey.So(keys(db.FindByField("year", "20")), convey.ShouldResemble, []string{"qm1", "qm2"})
			})

			convey.Convey("by exact field value", func() {
				convey.So(len(db.FindByFieldValue("year", "2020")), convey.ShouldEqual, 2)
				convey.So(len(db.FindByFieldValue("Author", "Dirac, Paul")), convey.ShouldEqual, 1)
				convey.So(db.FindByFieldValue("author", "Dirac"), convey.ShouldBeEmpty)
			})

			convey.Convey("get reads resolved text", func() {
				e, _ := db.FindByKey("rel")
				s, ok := db.Get(e, "Year")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(s, convey.ShouldEqual, "1905")
				_, ok = db.Get(e, "journal")
				convey.So(ok, convey.ShouldBeFalse)
				_, ok = db.Get(nil, "title")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	}
}

func TestStatsAndPositions(t *testing.T) {
	convey.Convey("stats count records by kind and type", t, func() {
		db, err := ParseString("@string{x = {y}}\n% note\n" + library)
		convey.So(err, convey.ShouldBeNil)
		st := db.Stats()
		convey.So(st.Entries, convey.ShouldEqual, 4)
		convey.So(st.Strings, convey.ShouldEqual, 1)
		convey.So(st.Comments, convey.ShouldEqual, 1)
		convey.So(st.Records, convey.ShouldEqual, 6)
		convey.So(st.EntriesByType, convey.ShouldResemble, map[string]int{"article": 2, "book": 1, "misc": 1})

		e, _ := db.FindByKey("rel")
		pos := db.Position(e.Offset())
		convey.So(pos.Line, convey.ShouldEqual, 9)
		convey.So(pos.Column, convey.ShouldEqual, 1)
		convey.So(pos.String(), convey.ShouldEqual, "9:1")
		convey.So(db.Position(len(db.Source())).Line, convey.ShouldEqual, strings.Count(db.Source(), "\n")+1)
	})
}

func TestCompactLayout(t *testing.T) {
	convey.Convey("values stay small and slices exact", t, func() {
		if unsafe.Sizeof(uintptr(0)) == 8 {
			convey.So(unsafe.Sizeof(Value{}), convey.ShouldEqual, uintptr(40))
		}
		db, err := ParseString(corpus(40))
		convey.So(err, convey.ShouldBeNil)
		for _, e := range db.Entries() {
			convey.So(cap(e.Fields), convey.ShouldEqual, len(e.Fields))
			for _, f := range e.Fields {
				if f.Value.Kind() == KindConcat {
					convey.So(len(f.Value.Parts()), convey.ShouldEqual, cap(f.Value.Parts()))
				}
			}
		}
		convey.So(cap(db.Entries()), convey.ShouldEqual, len(db.Entries()))
		convey.So(cap(db.Records()), convey.ShouldEqual, len(db.Records()))
	})
}

func TestRequiredFields(t *testing.T) {
	convey.Convey("required fields follow the standard styles", t, func() {
		convey.So(RequiredFields("Article"), convey.ShouldResemble, []string{"author", "title", "journal", "year"})
		convey.So(RequiredFields("conference"), convey.ShouldResemble, RequiredFields("inproceedings"))
		convey.So(RequiredFields("misc"), convey.ShouldBeEmpty)
		convey.So(RequiredFields("dataset"), convey.ShouldBeEmpty)
		convey.So(ParseEntryType("PhDThesis"), convey.ShouldEqual, TypePhdThesis)
		convey.So(TypeTechReport.String(), convey.ShouldEqual, "techreport")
		convey.So(ParseEntryType("dataset").String(), convey.ShouldEqual, "custom")

		db, err := ParseString(library)
		convey.So(err, convey.ShouldBeNil)
		rel, _ := db.FindByKey("rel")
		convey.So(rel.MissingFields(), convey.ShouldResemble, []string{"journal"})
		qm1, _ := db.FindByKey("qm1")
		convey.So(qm1.MissingFields(), convey.ShouldBeEmpty)
	})
}
