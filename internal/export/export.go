// Package export writes a user's items as an XML document.
package export

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/Dan9191/todo-service/internal/models"
	"github.com/beevik/etree"
)

// ContentType is the media type of exported documents.
const ContentType = "application/xml; charset=utf-8"

// Document builds the export tree:
//
//	<todoism user="..." exported="..." count="..."><item id done created>body</item>...</todoism>
func Document(user *models.User, items []models.Item, exportedAt time.Time) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("todoism")
	root.CreateAttr("user", user.Username)
	root.CreateAttr("exported", exportedAt.UTC().Format(time.RFC3339))
	root.CreateAttr("count", strconv.Itoa(len(items)))

	for _, item := range items {
		el := root.CreateElement("item")
		el.CreateAttr("id", strconv.FormatInt(item.ID, 10))
		el.CreateAttr("done", strconv.FormatBool(item.Done))
		el.CreateAttr("created", item.CreatedAt.UTC().Format(time.RFC3339))
		el.SetText(item.Body)
	}
	doc.Indent(2)
	return doc
}

// Write renders the export document for user to w.
func Write(w io.Writer, user *models.User, items []models.Item, exportedAt time.Time) error {
	if _, err := Document(user, items, exportedAt).WriteTo(w); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}
	return nil
}
