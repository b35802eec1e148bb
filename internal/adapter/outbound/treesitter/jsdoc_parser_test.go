package treesitter

import (
	"funcscan/internal/port/outbound"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJSDocParser(t *testing.T) *JSDocParser {
	t.Helper()
	parser, err := NewJSDocParser()
	require.NoError(t, err)
	return parser
}

func throwsTags(doc *outbound.DocComment) []outbound.DocTag {
	tags := make([]outbound.DocTag, 0)
	for _, tag := range doc.Tags {
		if tag.Title == "throws" || tag.Title == "exception" {
			tags = append(tags, tag)
		}
	}
	return tags
}

func TestJSDocParser_ThrowsTags(t *testing.T) {
	raw := `/**
 * Processes data.
 * @throws {ValidationError} when the data is invalid
 * @throws {TypeError} when the type is wrong
 */`

	doc, err := newTestJSDocParser(t).ParseDocComment(raw)
	require.NoError(t, err)

	assert.Equal(t, "Processes data.", doc.Description)
	tags := throwsTags(doc)
	require.Len(t, tags, 2)
	assert.Equal(t, "ValidationError", tags[0].TypeName)
	assert.Equal(t, "when the data is invalid", tags[0].Description)
	assert.Equal(t, "TypeError", tags[1].TypeName)
	assert.Equal(t, "when the type is wrong", tags[1].Description)
}

func TestJSDocParser_MixedTags(t *testing.T) {
	raw := `/**
 * Reads a file.
 * @param {string} filePath the path
 * @returns {string} the contents
 * @throws {FileNotFoundError} when the file is missing
 * @throws {PermissionError} when access is denied
 * @throws {IOError} on any other I/O failure
 */`

	doc, err := newTestJSDocParser(t).ParseDocComment(raw)
	require.NoError(t, err)

	titles := make([]string, 0, len(doc.Tags))
	for _, tag := range doc.Tags {
		titles = append(titles, tag.Title)
	}
	assert.Equal(t, []string{"param", "returns", "throws", "throws", "throws"}, titles)

	tags := throwsTags(doc)
	assert.Equal(t, "FileNotFoundError", tags[0].TypeName)
	assert.Equal(t, "PermissionError", tags[1].TypeName)
	assert.Equal(t, "IOError", tags[2].TypeName)
	assert.Equal(t, "on any other I/O failure", tags[2].Description)
}

func TestJSDocParser_TypeOnlyTag(t *testing.T) {
	doc, err := newTestJSDocParser(t).ParseDocComment("/**\n * Divides.\n * @throws {RangeError}\n */")
	require.NoError(t, err)

	tags := throwsTags(doc)
	require.Len(t, tags, 1)
	assert.Equal(t, "RangeError", tags[0].TypeName)
	assert.Empty(t, tags[0].Description)
}

func TestJSDocParser_NoTags(t *testing.T) {
	doc, err := newTestJSDocParser(t).ParseDocComment("/**\n * Just a summary.\n */")
	require.NoError(t, err)

	assert.Equal(t, "Just a summary.", doc.Description)
	assert.Empty(t, doc.Tags)
}

func TestJSDocParser_SingleLineBlocks(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		summary     string
		typeName    string
		description string
	}{
		{name: "typed with description", raw: "/** @throws {TypeError} bad input */", typeName: "TypeError", description: "bad input"},
		{name: "type only", raw: "/** @throws {RangeError} */", typeName: "RangeError"},
		{name: "untyped", raw: "/** @throws when anything fails */", description: "when anything fails"},
		{name: "summary only", raw: "/** Loads the file. */", summary: "Loads the file."},
	}

	parser := newTestJSDocParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parser.ParseDocComment(tt.raw)
			require.NoError(t, err)

			assert.Equal(t, tt.summary, doc.Description)
			tags := throwsTags(doc)
			if tt.typeName == "" && tt.description == "" {
				assert.Empty(t, tags)
				return
			}
			require.Len(t, tags, 1)
			assert.Equal(t, tt.typeName, tags[0].TypeName)
			assert.Equal(t, tt.description, tags[0].Description)
		})
	}
}

func TestJSDocParser_ExceptionTags(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  [][2]string
		title []string
	}{
		{
			name:  "typed",
			raw:   "/**\n * Reads.\n * @exception {IOError} disk failed\n */",
			want:  [][2]string{{"IOError", "disk failed"}},
			title: []string{"exception"},
		},
		{
			name:  "untyped",
			raw:   "/**\n * Reads.\n * @exception disk failed\n */",
			want:  [][2]string{{"", "disk failed"}},
			title: []string{"exception"},
		},
		{
			name:  "single line",
			raw:   "/** @exception {IOError} disk failed */",
			want:  [][2]string{{"IOError", "disk failed"}},
			title: []string{"exception"},
		},
		{
			name:  "mixed with throws",
			raw:   "/**\n * Copies.\n * @throws {TypeError} bad input\n * @exception {IOError} disk failed\n */",
			want:  [][2]string{{"TypeError", "bad input"}, {"IOError", "disk failed"}},
			title: []string{"throws", "exception"},
		},
	}

	parser := newTestJSDocParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parser.ParseDocComment(tt.raw)
			require.NoError(t, err)

			tags := throwsTags(doc)
			require.Len(t, tags, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, tt.title[i], tags[i].Title)
				assert.Equal(t, want[0], tags[i].TypeName)
				assert.Equal(t, want[1], tags[i].Description)
			}
		})
	}
}

func TestAliasExceptionTags(t *testing.T) {
	raw := "/**\n * See @exception in prose.\n * @exception {IOError} x\n */"

	source, aliased := aliasExceptionTags(raw)

	assert.Len(t, source, len(raw))
	assert.Contains(t, string(source), "See @exception in prose.")
	assert.Contains(t, string(source), " * @throws    {IOError} x")

	start := uint(len("/**\n * See @exception in prose.\n * "))
	assert.Equal(t, map[uint]struct{}{start: {}}, aliased)
}

func TestJSDocParser_Malformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "line comment", raw: "// @throws {TypeError}"},
		{name: "block comment", raw: "/* @throws {TypeError} */"},
		{name: "unterminated block", raw: "/** @throws {TypeError"},
	}

	parser := newTestJSDocParser(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := parser.ParseDocComment(tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, outbound.ErrMalformedDocComment)
			assert.Nil(t, doc)
		})
	}
}

func TestCleanJSDocType(t *testing.T) {
	assert.Equal(t, "TypeError", cleanJSDocType(" {TypeError} "))
	assert.Equal(t, "A|B", cleanJSDocType("{A|B}"))
	assert.Equal(t, "string", cleanJSDocType("string"))
}

func TestCleanDescription(t *testing.T) {
	assert.Equal(t, "first line\nsecond line", cleanDescription("first line\n   * second line\n   "))
	assert.Equal(t, "trailing", cleanDescription("trailing */"))
	assert.Equal(t, "bad input", cleanDescription("bad input *"))
	assert.Equal(t, "a*b", cleanDescription("a*b"))
	assert.Empty(t, cleanDescription("*"))
	assert.Empty(t, cleanDescription("  \n * \n"))
}

func TestSplitTypeFromDescription(t *testing.T) {
	tag := outbound.DocTag{Title: "exception", Description: "{errors.NotFound} missing"}
	splitTypeFromDescription(&tag)
	assert.Equal(t, "errors.NotFound", tag.TypeName)
	assert.Equal(t, "missing", tag.Description)

	typed := outbound.DocTag{Title: "throws", TypeName: "A", TypeExpression: "A", Description: "{not a type}"}
	splitTypeFromDescription(&typed)
	assert.Equal(t, "A", typed.TypeName)
	assert.Equal(t, "{not a type}", typed.Description)

	union := outbound.DocTag{Description: "{A | B}"}
	splitTypeFromDescription(&union)
	assert.Equal(t, "A | B", union.TypeExpression)
	assert.Empty(t, union.TypeName)
	assert.Empty(t, union.Description)
}
