package azdo

import (
	"context"
	"net/http"
	"net/url"

	"github.com/HamedShams/devops-pulse/internal/domain"
	"github.com/rs/zerolog"
)

// boardsPath uses the project name as the team name, which only holds for
// projects that keep the default team.
func (c *Client) boardsPath() string {
	return "/" + url.PathEscape(c.project) + "/_apis/work/boards"
}

func (c *Client) Boards(ctx context.Context) ([]domain.Board, error) {
	var res listResponse[domain.Board]
	if err := c.doJSON(ctx, http.MethodGet, c.apiURL(c.boardsPath(), nil), "", nil, &res); err != nil {
		return nil, c.fail(err, "fetch boards", "project "+c.project, nil)
	}
	if res.Value == nil {
		return []domain.Board{}, nil
	}
	return res.Value, nil
}

func (c *Client) BoardColumns(ctx context.Context, boardID string) ([]domain.BoardColumn, error) {
	if boardID == "" {
		return nil, domain.Required("boardId")
	}
	var res listResponse[domain.BoardColumn]
	u := c.apiURL(c.boardsPath()+"/"+url.PathEscape(boardID)+"/columns", nil)
	if err := c.doJSON(ctx, http.MethodGet, u, "", nil, &res); err != nil {
		return nil, c.fail(err, "fetch board columns", "board "+boardID, func(e *zerolog.Event) *zerolog.Event {
			return e.Str("board_id", boardID)
		})
	}
	if res.Value == nil {
		return []domain.BoardColumn{}, nil
	}
	return res.Value, nil
}
