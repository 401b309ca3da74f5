package util

import (
	"github.com/cloudwego/eino/compose"
)

func MustAddLambdaNode[I any, O any](g *compose.Graph[I, O], key string, node *compose.Lambda, opts ...compose.GraphAddNodeOpt) {
	if err := g.AddLambdaNode(key, node, opts...); err != nil {
		panic(err)
	}
}

func MustAddGraphBranch[I any, O any](g *compose.Graph[I, O], key string, node *compose.GraphBranch) {
	if err := g.AddBranch(key, node); err != nil {
		panic(err)
	}
}

func MustAddEdge[I any, O any](g *compose.Graph[I, O], start, end string) {
	if err := g.AddEdge(start, end); err != nil {
		panic(err)
	}
}
