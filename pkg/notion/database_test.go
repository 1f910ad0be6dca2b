package notion_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadscout/pkg/notion"
	"github.com/sells-group/leadscout/pkg/notion/mocks"
)

func TestQueryAll_SinglePage(t *testing.T) {
	mc := mocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.AnythingOfType("*notionapi.DatabaseQueryRequest")).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{{ID: "p1"}, {ID: "p2"}},
		}, nil).Once()

	pages, err := notion.QueryAll(ctx, mc, "db-1", nil)
	require.NoError(t, err)
	assert.Len(t, pages, 2)
}

func TestQueryAll_MultiPage(t *testing.T) {
	mc := mocks.NewMockClient(t)
	ctx := context.Background()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == ""
	})).Return(&notionapi.DatabaseQueryResponse{
		Results:    []notionapi.Page{{ID: "p1"}},
		HasMore:    true,
		NextCursor: notionapi.Cursor("cursor-abc"),
	}, nil).Once()

	mc.On("QueryDatabase", ctx, "db-1", mock.MatchedBy(func(req *notionapi.DatabaseQueryRequest) bool {
		return req.StartCursor == notionapi.Cursor("cursor-abc") && req.PageSize == 50
	})).Return(&notionapi.DatabaseQueryResponse{
		Results: []notionapi.Page{{ID: "p2"}},
	}, nil).Once()

	pages, err := notion.QueryAll(ctx, mc, "db-1", &notionapi.DatabaseQueryRequest{PageSize: 50})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, notionapi.ObjectID("p2"), pages[1].ID)
}

func TestQueryAll_Error(t *testing.T) {
	mc := mocks.NewMockClient(t)
	mc.On("QueryDatabase", mock.Anything, "db-err", mock.Anything).Return(nil, assert.AnError).Once()

	pages, err := notion.QueryAll(context.Background(), mc, "db-err", nil)
	assert.Nil(t, pages)
	assert.ErrorContains(t, err, "notion: query all page")
}

func TestCreateInDatabase(t *testing.T) {
	mc := mocks.NewMockClient(t)
	mc.On("CreatePage", mock.Anything, mock.MatchedBy(func(req *notionapi.PageCreateRequest) bool {
		title, ok := req.Properties["Name"].(notionapi.TitleProperty)
		return req.Parent.DatabaseID == "db-leads" && ok && title.Title[0].Text.Content == "Asha Verma"
	})).Return(&notionapi.Page{ID: "new"}, nil).Once()

	page, err := notion.CreateInDatabase(context.Background(), mc, "db-leads", notionapi.Properties{
		"Name": notion.Title("Asha Verma"),
		"Tier": notion.Select("A"),
	})
	require.NoError(t, err)
	assert.Equal(t, notionapi.ObjectID("new"), page.ID)
}

func TestPropertyBuilders(t *testing.T) {
	long := strings.Repeat("x", 2500)
	assert.Len(t, notion.RichText(long).RichText[0].Text.Content, 2000)
	assert.Equal(t, "https://x", notion.URL("https://x").URL)
	assert.Equal(t, 0.8, notion.Number(0.8).Number)
}

func TestPlainText(t *testing.T) {
	page := notionapi.Page{
		Properties: notionapi.Properties{
			"Name": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: " Asha "}, {PlainText: "Verma"}},
			},
			"LinkedIn": &notionapi.URLProperty{URL: "https://www.linkedin.com/in/asha"},
			"Notes":    &notionapi.RichTextProperty{RichText: []notionapi.RichText{{PlainText: "met at expo"}}},
			"Score":    &notionapi.NumberProperty{Number: 3},
		},
	}
	assert.Equal(t, "Asha Verma", notion.PlainText(page, "Name"))
	assert.Equal(t, "https://www.linkedin.com/in/asha", notion.PlainText(page, "LinkedIn"))
	assert.Equal(t, "met at expo", notion.PlainText(page, "Notes"))
	assert.Empty(t, notion.PlainText(page, "Score"))
	assert.Empty(t, notion.PlainText(page, "Missing"))
}
