package term

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"graphvault/internal/domain"
)

// TypeBadge renders a node type in its color
func TypeBadge(t domain.NodeType) string {
	color := TypeStandard
	switch t {
	case domain.NodeTypeSIMO:
		color = TypeSIMO
	case domain.NodeTypeMISO:
		color = TypeMISO
	}
	return lipgloss.NewStyle().Foreground(color).Render(t.String())
}

// Node renders a node with its properties, one field per line
func Node(n domain.Node) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Title.Render(fmt.Sprintf("Node %d", n.ID)), TypeBadge(n.Type))
	fmt.Fprintf(&sb, "%s %s\n", Label.Render("content:"), n.Content)
	fmt.Fprintf(&sb, "%s %d\n", Label.Render("version:"), n.Version)
	properties(&sb, n.Properties)
	return sb.String()
}

// Edge renders an edge on one line
func Edge(e domain.Edge) string {
	line := fmt.Sprintf("%s %s %s  %s",
		NodeID.Render(fmt.Sprint(e.From)),
		Arrow.Render("->"),
		NodeID.Render(fmt.Sprint(e.To)),
		Weight.Render(fmt.Sprintf("%g", e.Weight)),
	)
	if e.Content != "" {
		line += "  " + e.Content
	}
	if len(e.Properties) > 0 {
		line += "  " + MutedText.Render(inlineProperties(e.Properties))
	}
	return line
}

// CatalogNode renders a catalog row on one line
func CatalogNode(n domain.CatalogNode) string {
	return fmt.Sprintf("%s  %s  %s  %s",
		NodeID.Render(fmt.Sprint(n.ID)),
		TypeBadge(n.Type),
		MutedText.Render(fmt.Sprintf("out=%d in=%d", n.EdgeCount, n.InEdgeCount)),
		n.Content,
	)
}

// Finding renders a check finding
func Finding(f domain.Finding) string {
	return WarningMsg.Render("! ") + f.String()
}

// Skipped renders records that could not be read
func Skipped(errs []error) string {
	if len(errs) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(WarningMsg.Render(fmt.Sprintf("%d unreadable records skipped", len(errs))))
	sb.WriteByte('\n')
	for _, err := range errs {
		fmt.Fprintf(&sb, "  %s\n", MutedText.Render(err.Error()))
	}
	return sb.String()
}

func properties(sb *strings.Builder, props domain.Properties) {
	if len(props) == 0 {
		return
	}
	sb.WriteString(Label.Render("properties:"))
	sb.WriteByte('\n')
	for _, k := range slices.Sorted(maps.Keys(props)) {
		fmt.Fprintf(sb, "  %s = %s\n", k, props[k])
	}
}

func inlineProperties(props domain.Properties) string {
	parts := make([]string, 0, len(props))
	for _, k := range slices.Sorted(maps.Keys(props)) {
		parts = append(parts, fmt.Sprintf("%s=%s", k, props[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
