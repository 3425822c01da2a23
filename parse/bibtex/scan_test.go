package bibtex

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func naiveFind(s string, start int, set string) (int, byte) {
	for i := max(start, 0); i < len(s); i++ {
		if strings.IndexByte(set, s[i]) >= 0 {
			return i, s[i]
		}
	}
	return -1, 0
}

func randomInput(r *rand.Rand, n int) string {
	const alphabet = "abcdefgh   \n@{}=,\\\"#%()xyz0123"
	b := make([]byte, n)
	for i := range b {
		// keep delimiters sparse so long delimiter-free runs are exercised
		if r.Intn(10) < 8 {
			b[i] = "abcdefghijklmnop "[r.Intn(17)]
			continue
		}
		b[i] = alphabet[r.Intn(len(alphabet))]
	}
	return string(b)
}

func withStrategy(s scanStrategy, fn func()) {
	saved := activeStrategy
	activeStrategy = s
	defer func() { activeStrategy = saved }()
	fn()
}

func TestFindDelimiter(t *testing.T) {
	convey.Convey("FindDelimiter returns the nearest structural byte", t, func() {
		src := `@article{key, title = {x}}`
		i, c := FindDelimiter(src, 0)
		convey.So(i, convey.ShouldEqual, 0)
		convey.So(c, convey.ShouldEqual, AT)

		i, c = FindDelimiter(src, 1)
		convey.So(i, convey.ShouldEqual, 8)
		convey.So(c, convey.ShouldEqual, LBRACE)

		i, c = FindDelimiter(src, 9)
		convey.So(i, convey.ShouldEqual, 12)
		convey.So(c, convey.ShouldEqual, COMMA)

		i, c = FindDelimiter(src, 13)
		convey.So(i, convey.ShouldEqual, 20)
		convey.So(c, convey.ShouldEqual, EQUAL)

		i, _ = FindDelimiter(src, len(src))
		convey.So(i, convey.ShouldEqual, -1)
		i, _ = FindDelimiter("no delimiters here", 0)
		convey.So(i, convey.ShouldEqual, -1)
	})
}

func TestContextScanners(t *testing.T) {
	convey.Convey("brace and quote scanners only stop at their own bytes", t, func() {
		src := `a, b = @ {c} \d "e"`
		i, c := FindBraceDelimiter(src, 0)
		convey.So(c, convey.ShouldEqual, LBRACE)
		convey.So(i, convey.ShouldEqual, 9)

		i, c = FindBraceDelimiter(src, 12)
		convey.So(c, convey.ShouldEqual, BACKSLASH)
		convey.So(i, convey.ShouldEqual, 13)

		i, c = FindQuoteDelimiter(src, 14)
		convey.So(c, convey.ShouldEqual, QUOTE)
		convey.So(i, convey.ShouldEqual, 16)

		i, c = FindQuoteDelimiter("x}y\"", 0)
		convey.So(c, convey.ShouldEqual, RBRACE)
		convey.So(i, convey.ShouldEqual, 1)

		convey.So(FindByte(src, '@', 0), convey.ShouldEqual, 7)
		convey.So(FindByte(src, '@', 8), convey.ShouldEqual, -1)

		i, c = FindBytes2(src, '=', ',', 0)
		convey.So(i, convey.ShouldEqual, 1)
		convey.So(c, convey.ShouldEqual, COMMA)

		i, c = FindBytes3(src, 'q', '"', '=', 0)
		convey.So(i, convey.ShouldEqual, 5)
		convey.So(c, convey.ShouldEqual, EQUAL)
	})
}

func TestScanStrategiesAgree(t *testing.T) {
	convey.Convey("SWAR and IndexByte scanning find the same delimiters", t, func() {
		r := rand.New(rand.NewSource(42))
		for round := 0; round < 300; round++ {
			src := randomInput(r, r.Intn(1500))
			start := 0
			if len(src) > 0 {
				start = r.Intn(len(src))
			}
			wantI, wantC := naiveFind(src, start, "@{}=,")
			braceI, braceC := naiveFind(src, start, "{}\\")
			quoteI, quoteC := naiveFind(src, start, "\"{}\\")

			for _, s := range []scanStrategy{strategyIndex, strategySWAR} {
				withStrategy(s, func() {
					i, c := FindDelimiter(src, start)
					convey.So(i, convey.ShouldEqual, wantI)
					convey.So(c, convey.ShouldEqual, wantC)

					i, c = FindBraceDelimiter(src, start)
					convey.So(i, convey.ShouldEqual, braceI)
					convey.So(c, convey.ShouldEqual, braceC)

					i, c = FindQuoteDelimiter(src, start)
					convey.So(i, convey.ShouldEqual, quoteI)
					convey.So(c, convey.ShouldEqual, quoteC)
				})
			}

			i2, c2 := swarIndex2(src, '%', '#')
			j2, d2 := blockIndex2(src, '%', '#')
			convey.So(i2, convey.ShouldEqual, j2)
			convey.So(c2, convey.ShouldEqual, d2)
		}
	})

	convey.Convey("a strategy is always selected", t, func() {
		convey.So(ScanStrategy(), convey.ShouldBeIn, []string{"index", "swar"})
	})
}
