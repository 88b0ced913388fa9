/*
 * iptv-bridge is a reverse proxy and aggregator for IPTV providers.
 * Copyright (C) 2026  Lucas Duport
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/lucasduport/iptv-bridge/pkg/fetcher"
	"github.com/lucasduport/iptv-bridge/pkg/types"
	"github.com/lucasduport/iptv-bridge/pkg/utils"
)

// categoryActions are the three player_api listings that together cover
// the whole upstream category catalog.
var categoryActions = []string{
	"get_live_categories",
	"get_vod_categories",
	"get_series_categories",
}

// xtreamCategory is the player_api category shape. CategoryID is a
// json.Number because upstreams disagree on quoting it.
type xtreamCategory struct {
	CategoryID   json.Number `json:"category_id"`
	CategoryName string      `json:"category_name"`
}

// enrichGroups sets XtreamCatID on every group whose name matches an
// upstream category name. The three listings are fetched concurrently;
// any fetch failure fails the enrichment as a whole.
func (p *Parser) enrichGroups(ctx context.Context, groups []types.ParsedGroup) error {
	categories, err := p.fetchCategories(ctx)
	if err != nil {
		return err
	}

	matched := 0
	for i := range groups {
		if catID, ok := categories[groups[i].Name]; ok {
			id := catID
			groups[i].XtreamCatID = &id
			matched++
		}
	}
	utils.DebugLog("Matched %d of %d groups against %d xtream categories", matched, len(groups), len(categories))
	return nil
}

// fetchCategories returns the merged name-to-id category index.
func (p *Parser) fetchCategories(ctx context.Context) (map[string]int64, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	categories := map[string]int64{}

	for _, action := range categoryActions {
		wg.Add(1)
		go func(action string) {
			defer wg.Done()

			listing, err := p.fetchCategoryListing(ctx, action)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			for _, cat := range listing {
				id, err := cat.CategoryID.Int64()
				if err != nil {
					utils.WarnLog("Skipping category %q with non-numeric id %q", cat.CategoryName, cat.CategoryID)
					continue
				}
				categories[cat.CategoryName] = id
			}
		}(action)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("fetching xtream categories: %w", firstErr)
	}
	return categories, nil
}

func (p *Parser) fetchCategoryListing(ctx context.Context, action string) ([]xtreamCategory, error) {
	query := url.Values{}
	query.Set("username", p.xtream.Username.String())
	query.Set("password", p.xtream.Password.String())
	query.Set("action", action)

	endpoint := fmt.Sprintf("http://%s/player_api.php?%s", p.xtream.BaseDomain, query.Encode())

	listing, _, _, err := fetcher.GetJSON[[]xtreamCategory](ctx, p.fetch, endpoint)
	if err != nil {
		return nil, utils.PrintErrorAndReturn(fmt.Errorf("%s failed: %w", action, err))
	}
	return listing, nil
}
