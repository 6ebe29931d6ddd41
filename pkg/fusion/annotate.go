package fusion

import "insiderkg/pkg/common"

// Annotate stamps the report source URL onto every node and edge of the
// graph. Elements that already carry a source keep it.
func Annotate(g *common.Graph, sourceURL string) {
	if sourceURL == "" {
		return
	}
	for _, node := range g.Nodes {
		if node.Properties == nil {
			node.Properties = map[string]string{}
		}
		if node.Properties[common.SourceKey] == "" {
			node.Properties[common.SourceKey] = sourceURL
		}
	}
	for _, edge := range g.Edges {
		if edge.Properties == nil {
			edge.Properties = map[string]string{}
		}
		if edge.Properties[common.SourceKey] == "" {
			edge.Properties[common.SourceKey] = sourceURL
		}
	}
}
