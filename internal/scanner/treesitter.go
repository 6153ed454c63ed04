package scanner

import (
	"context"
	"os"
	"sort"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

// extractGoStructure parses a Go file with tree-sitter and returns
// declarations with real start/end lines.
func extractGoStructure(path string) ([]Item, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(context.Background(), nil, content)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	var items []Item
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		switch n.Type() {
		case "function_declaration", "method_declaration":
			if name := n.ChildByFieldName("name"); name != nil {
				items = append(items, Item{
					Name:      name.Content(content),
					Kind:      "function",
					StartLine: int(n.StartPoint().Row) + 1,
					EndLine:   int(n.EndPoint().Row) + 1,
				})
			}
		case "type_declaration":
			for i := 0; i < int(n.NamedChildCount()); i++ {
				spec := n.NamedChild(i)
				if spec.Type() != "type_spec" {
					continue
				}
				if name := spec.ChildByFieldName("name"); name != nil {
					items = append(items, Item{
						Name:      name.Content(content),
						Kind:      "type",
						StartLine: int(n.StartPoint().Row) + 1,
						EndLine:   int(n.EndPoint().Row) + 1,
					})
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(tree.RootNode())

	sort.Slice(items, func(i, j int) bool { return items[i].StartLine < items[j].StartLine })
	return items, nil
}
