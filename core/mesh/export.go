package mesh

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/siherrmann/mesher/helper"
	"github.com/siherrmann/mesher/model"
)

// ExportFormat selects the serialization format of ExportMesh
type ExportFormat string

const (
	FormatJSON    ExportFormat = "json"
	FormatGEXF    ExportFormat = "gexf"
	FormatGraphML ExportFormat = "graphml"
)

// exportNode is the node-link representation of one mesh node. Embeddings
// are omitted to keep exports small.
type exportNode struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	NodeType  model.NodeType `json:"node_type"`
	Community int            `json:"community"`
	PageRank  float64        `json:"page_rank"`
}

type exportLink struct {
	Source   string         `json:"source"`
	Target   string         `json:"target"`
	Weight   float64        `json:"weight"`
	EdgeType model.EdgeType `json:"edge_type"`
}

type exportDocument struct {
	Directed bool         `json:"directed"`
	Nodes    []exportNode `json:"nodes"`
	Links    []exportLink `json:"links"`
}

// ExportMesh serializes the mesh in the given format. JSON uses the
// node-link structure, GEXF and GraphML are the standard XML graph formats.
func (m *Mesh) ExportMesh(format ExportFormat) ([]byte, error) {
	switch format {
	case FormatJSON:
		return m.exportJSON()
	case FormatGEXF:
		return m.exportGEXF()
	case FormatGraphML:
		return m.exportGraphML()
	default:
		return nil, helper.NewError("exporting mesh", fmt.Errorf("unknown export format %v", format))
	}
}

func (m *Mesh) exportJSON() ([]byte, error) {
	document := exportDocument{Directed: false, Nodes: []exportNode{}, Links: []exportLink{}}
	for _, id := range m.order {
		node := m.nodes[id]
		document.Nodes = append(document.Nodes, exportNode{
			ID:        node.ID,
			Title:     node.Title,
			NodeType:  node.NodeType,
			Community: node.Community,
			PageRank:  node.PageRank,
		})
	}
	for _, edge := range m.Edges() {
		document.Links = append(document.Links, exportLink{
			Source:   edge.SourceID,
			Target:   edge.TargetID,
			Weight:   edge.Weight,
			EdgeType: edge.EdgeType,
		})
	}

	out, err := json.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, helper.NewError("marshalling mesh export", err)
	}
	return out, nil
}

type gexfAttValue struct {
	For   string `xml:"for,attr"`
	Value string `xml:"value,attr"`
}

type gexfNode struct {
	ID        string         `xml:"id,attr"`
	Label     string         `xml:"label,attr"`
	AttValues []gexfAttValue `xml:"attvalues>attvalue"`
}

type gexfEdge struct {
	ID     string  `xml:"id,attr"`
	Source string  `xml:"source,attr"`
	Target string  `xml:"target,attr"`
	Weight float64 `xml:"weight,attr"`
}

type gexfAttribute struct {
	ID    string `xml:"id,attr"`
	Title string `xml:"title,attr"`
	Type  string `xml:"type,attr"`
}

type gexfGraph struct {
	DefaultEdgeType string          `xml:"defaultedgetype,attr"`
	Attributes      []gexfAttribute `xml:"attributes>attribute"`
	Nodes           []gexfNode      `xml:"nodes>node"`
	Edges           []gexfEdge      `xml:"edges>edge"`
}

type gexfDocument struct {
	XMLName      xml.Name  `xml:"gexf"`
	Xmlns        string    `xml:"xmlns,attr"`
	Version      string    `xml:"version,attr"`
	LastModified string    `xml:"meta>lastmodifieddate"`
	Creator      string    `xml:"meta>creator"`
	Graph        gexfGraph `xml:"graph"`
}

func (m *Mesh) exportGEXF() ([]byte, error) {
	document := gexfDocument{
		Xmlns:        "http://gexf.net/1.3",
		Version:      "1.3",
		LastModified: time.Now().Format("2006-01-02"),
		Creator:      "mesher",
		Graph: gexfGraph{
			DefaultEdgeType: "undirected",
			Attributes: []gexfAttribute{
				{ID: "community", Title: "community", Type: "integer"},
				{ID: "pagerank", Title: "pagerank", Type: "double"},
			},
		},
	}

	for _, id := range m.order {
		node := m.nodes[id]
		document.Graph.Nodes = append(document.Graph.Nodes, gexfNode{
			ID:    node.ID,
			Label: node.Title,
			AttValues: []gexfAttValue{
				{For: "community", Value: fmt.Sprintf("%d", node.Community)},
				{For: "pagerank", Value: fmt.Sprintf("%g", node.PageRank)},
			},
		})
	}
	for i, edge := range m.Edges() {
		document.Graph.Edges = append(document.Graph.Edges, gexfEdge{
			ID:     fmt.Sprintf("e%d", i),
			Source: edge.SourceID,
			Target: edge.TargetID,
			Weight: edge.Weight,
		})
	}

	out, err := xml.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, helper.NewError("marshalling gexf export", err)
	}
	return append([]byte(xml.Header), out...), nil
}

type graphmlKey struct {
	ID       string `xml:"id,attr"`
	For      string `xml:"for,attr"`
	AttrName string `xml:"attr.name,attr"`
	AttrType string `xml:"attr.type,attr"`
}

type graphmlData struct {
	Key   string `xml:"key,attr"`
	Value string `xml:",chardata"`
}

type graphmlNode struct {
	ID   string        `xml:"id,attr"`
	Data []graphmlData `xml:"data"`
}

type graphmlEdge struct {
	ID     string        `xml:"id,attr"`
	Source string        `xml:"source,attr"`
	Target string        `xml:"target,attr"`
	Data   []graphmlData `xml:"data"`
}

type graphmlGraph struct {
	ID          string        `xml:"id,attr"`
	EdgeDefault string        `xml:"edgedefault,attr"`
	Nodes       []graphmlNode `xml:"node"`
	Edges       []graphmlEdge `xml:"edge"`
}

type graphmlDocument struct {
	XMLName xml.Name     `xml:"graphml"`
	Xmlns   string       `xml:"xmlns,attr"`
	Keys    []graphmlKey `xml:"key"`
	Graph   graphmlGraph `xml:"graph"`
}

func (m *Mesh) exportGraphML() ([]byte, error) {
	document := graphmlDocument{
		Xmlns: "http://graphml.graphdrawing.org/xmlns",
		Keys: []graphmlKey{
			{ID: "title", For: "node", AttrName: "title", AttrType: "string"},
			{ID: "community", For: "node", AttrName: "community", AttrType: "int"},
			{ID: "pagerank", For: "node", AttrName: "pagerank", AttrType: "double"},
			{ID: "weight", For: "edge", AttrName: "weight", AttrType: "double"},
		},
		Graph: graphmlGraph{ID: m.indexName, EdgeDefault: "undirected"},
	}

	for _, id := range m.order {
		node := m.nodes[id]
		document.Graph.Nodes = append(document.Graph.Nodes, graphmlNode{
			ID: node.ID,
			Data: []graphmlData{
				{Key: "title", Value: node.Title},
				{Key: "community", Value: fmt.Sprintf("%d", node.Community)},
				{Key: "pagerank", Value: fmt.Sprintf("%g", node.PageRank)},
			},
		})
	}
	for i, edge := range m.Edges() {
		document.Graph.Edges = append(document.Graph.Edges, graphmlEdge{
			ID:     fmt.Sprintf("e%d", i),
			Source: edge.SourceID,
			Target: edge.TargetID,
			Data:   []graphmlData{{Key: "weight", Value: fmt.Sprintf("%g", edge.Weight)}},
		})
	}

	out, err := xml.MarshalIndent(document, "", "  ")
	if err != nil {
		return nil, helper.NewError("marshalling graphml export", err)
	}
	return append([]byte(xml.Header), out...), nil
}
