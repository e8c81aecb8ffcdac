package extractor

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"igcrawler/pkg/browser/browsertest"
	errs "igcrawler/pkg/errors"
	"igcrawler/pkg/instagram"
	"igcrawler/pkg/logger"
	"igcrawler/pkg/models"
	"igcrawler/pkg/navigator"
)

var link = instagram.PostURL("CxYz123")

type fakeData struct {
	media *instagram.ShortcodeMedia
	err   error
	calls int
}

func (f *fakeData) PostInfo(ctx context.Context, shortcode string) (*instagram.ShortcodeMedia, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

func sidecar(videos ...string) *instagram.ShortcodeMedia {
	media := &instagram.ShortcodeMedia{Shortcode: "CxYz123", EdgeSidecarToChildren: &instagram.Sidecar{}}
	for _, v := range videos {
		media.EdgeSidecarToChildren.Edges = append(media.EdgeSidecarToChildren.Edges,
			instagram.SidecarEdge{Node: instagram.ShortcodeMedia{VideoURL: v, IsVideo: v != ""}})
	}
	return media
}

func newExtractor(b *browsertest.Browser, data StructuredDataSource) *Extractor {
	log := logger.NewTestLogger()
	nav := navigator.New(b, navigator.Config{MaxAttempts: 1}, log)
	return New(nav, b, data, Config{PageLoadAttempts: 3}, log)
}

// postPage renders the owner header every post page shows.
func postPage() *browsertest.Browser {
	b := browsertest.New()
	b.SetDOM(instagram.SelectorPageUsername, browsertest.NewElement("href", "/natgeo/"))
	return b
}

func imageItem(src string) *browsertest.Element {
	return browsertest.NewElement().With(instagram.SelectorImage, browsertest.NewElement("src", src))
}

func videoItem(src string) *browsertest.Element {
	return browsertest.NewElement().With(instagram.SelectorVideo, browsertest.NewElement("src", src))
}

func cdn(i int) string {
	return fmt.Sprintf("https://cdn.example.com/v/t51/%d.jpg?stp=dst", i)
}

// carousel renders a carousel of n items with indicators and a next control.
func carousel(b *browsertest.Browser, n int) (list, next *browsertest.Element) {
	indicators := make([]*browsertest.Element, n)
	for i := range indicators {
		indicators[i] = browsertest.NewElement()
	}
	b.SetDOM(instagram.SelectorIndicator, indicators...)

	list = browsertest.NewElement()
	next = browsertest.NewElement()
	b.SetDOM(instagram.SelectorCarouselList, list)
	b.SetDOM(instagram.SelectorNextControl, next)
	return list, next
}

func urls(items []models.MediaItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.URL)
	}
	return out
}

func TestSlotForIndex(t *testing.T) {
	tests := []struct {
		i, n int
		want Slot
		pos  int
	}{
		{0, 5, SlotFirst, 0},
		{1, 5, SlotMiddle, 1},
		{2, 5, SlotMiddle, 1},
		{3, 5, SlotMiddle, 1},
		{4, 5, SlotLast, 2},
		{0, 2, SlotFirst, 0},
		{1, 2, SlotLast, 2},
		{0, 1, SlotFirst, 0},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d_of_%d", tt.i, tt.n), func(t *testing.T) {
			got := SlotForIndex(tt.i, tt.n)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.pos, got.Position(3))
		})
	}

	assert.Equal(t, -1, SlotMiddle.Position(0))
	assert.Equal(t, "last", SlotLast.String())
}

func TestCarouselReadsFirstMiddleAndLastSlots(t *testing.T) {
	b := postPage()
	list, next := carousel(b, 5)
	list.With(instagram.SelectorCarouselItem, imageItem(cdn(0)), imageItem(cdn(1)), imageItem(cdn(9)))

	content, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	require.NoError(t, err)

	assert.True(t, content.HasMultiple)
	assert.Equal(t, []string{cdn(0), cdn(1), cdn(1), cdn(1), cdn(9)}, urls(content.Items))
	assert.Equal(t, 4, next.Clicks())
	for i, item := range content.Items {
		assert.Equal(t, i, item.Index)
		assert.Equal(t, models.MediaImage, item.Kind)
	}
}

func TestCarouselFollowsSlidingWindow(t *testing.T) {
	const n = 5
	b := postPage()
	list, next := carousel(b, n)

	render := func(current int) {
		var items []*browsertest.Element
		for i := current - 1; i <= current+1; i++ {
			if i >= 0 && i < n {
				items = append(items, imageItem(cdn(i)))
			}
		}
		list.With(instagram.SelectorCarouselItem, items...)
	}
	current := 0
	render(current)
	next.OnClick = func() {
		current++
		render(current)
	}

	content, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, []string{cdn(0), cdn(1), cdn(2), cdn(3), cdn(4)}, urls(content.Items))
}

func TestCarouselVideoFallsBackToStructuredDataOnce(t *testing.T) {
	b := postPage()
	list, _ := carousel(b, 3)
	list.With(instagram.SelectorCarouselItem,
		imageItem(cdn(0)),
		videoItem("blob:https://www.instagram.com/5f1e"),
		browsertest.NewElement(),
	)

	data := &fakeData{media: sidecar("", "https://cdn.example.com/v1.mp4", "https://cdn.example.com/v2.mp4")}
	content, err := newExtractor(b, data).Extract(context.Background(), link)
	require.NoError(t, err)

	assert.Equal(t, []string{cdn(0), "https://cdn.example.com/v1.mp4", "https://cdn.example.com/v2.mp4"}, urls(content.Items))
	assert.Equal(t, models.MediaVideo, content.Items[2].Kind)
	assert.Equal(t, 1, data.calls)
}

func TestCarouselItemWithoutMediaIsSkipped(t *testing.T) {
	b := postPage()
	list, _ := carousel(b, 3)
	list.With(instagram.SelectorCarouselItem, imageItem(cdn(0)), browsertest.NewElement(), imageItem(cdn(2)))

	data := &fakeData{err: errs.New(errs.ErrorTypeParsing, "rendered document holds no JSON payload")}
	content, err := newExtractor(b, data).Extract(context.Background(), link)
	require.NoError(t, err)

	assert.Equal(t, 1, content.Skipped)
	assert.Equal(t, []string{cdn(0), cdn(2)}, urls(content.Items))
	assert.Equal(t, 2, content.Items[1].Index)
}

func TestCarouselMissingListFailsPost(t *testing.T) {
	b := postPage()
	carousel(b, 3)
	b.SetDOM(instagram.SelectorCarouselList)

	_, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeExtraction))
	assert.False(t, errs.IsFatal(err))
}

func TestCarouselEmptyListFailsPost(t *testing.T) {
	b := postPage()
	carousel(b, 2)

	_, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	assert.True(t, errs.Is(err, errs.ErrorTypeExtraction))
}

func TestCarouselNextClickFailureFailsPost(t *testing.T) {
	b := postPage()
	list, next := carousel(b, 2)
	list.With(instagram.SelectorCarouselItem, imageItem(cdn(0)), imageItem(cdn(1)))
	next.ClickErr = errors.New("element click intercepted")

	_, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	assert.True(t, errs.Is(err, errs.ErrorTypeExtraction))
}

func TestNextControlWithoutIndicatorsIsSingle(t *testing.T) {
	b := postPage()
	b.SetDOM(instagram.SelectorNextControl, browsertest.NewElement())
	b.SetDOM(instagram.SelectorPostBox, imageItem(cdn(7)))

	content, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	require.NoError(t, err)
	assert.False(t, content.HasMultiple)
	assert.Equal(t, []string{cdn(7)}, urls(content.Items))
}

func TestSingleImageWithPublishTime(t *testing.T) {
	b := postPage()
	b.SetDOM(instagram.SelectorPostTime, browsertest.NewElement("datetime", "2021-03-04T05:06:07.000Z"))
	b.SetDOM(instagram.SelectorPostBox, imageItem("https://cdn.example.com/v/t51/abc_n.jpg?_nc_ht=x"))

	content, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	require.NoError(t, err)

	require.Len(t, content.Items, 1)
	assert.False(t, content.HasMultiple)
	assert.Equal(t, "CxYz123", content.Shortcode)
	require.NotNil(t, content.PublishedAt)
	assert.Equal(t, time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC), content.PublishedAt.UTC())
	assert.Equal(t, "2021_03_04_05_06_07-abc_n.jpg", content.Items[0].Filename)
}

func TestSingleDirectVideo(t *testing.T) {
	b := postPage()
	b.SetDOM(instagram.SelectorPostBox, videoItem("https://cdn.example.com/clip.mp4"))

	data := &fakeData{}
	content, err := newExtractor(b, data).Extract(context.Background(), link)
	require.NoError(t, err)

	require.Len(t, content.Items, 1)
	assert.Equal(t, models.MediaVideo, content.Items[0].Kind)
	assert.Equal(t, "clip.mp4", content.Items[0].Filename)
	assert.Zero(t, data.calls)
}

func TestSingleBlobVideoUsesStructuredData(t *testing.T) {
	b := postPage()
	b.SetDOM(instagram.SelectorPostBox, videoItem("blob:https://www.instagram.com/77aa"))

	data := &fakeData{media: &instagram.ShortcodeMedia{Shortcode: "CxYz123", IsVideo: true, VideoURL: "https://cdn.example.com/full.mp4"}}
	content, err := newExtractor(b, data).Extract(context.Background(), link)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://cdn.example.com/full.mp4"}, urls(content.Items))
}

func TestSingleWithoutMediaYieldsNoItems(t *testing.T) {
	b := postPage()

	content, err := newExtractor(b, &fakeData{err: errors.New("boom")}).Extract(context.Background(), link)
	require.NoError(t, err)
	assert.Empty(t, content.Items)
}

func TestUnavailablePostIsSkipped(t *testing.T) {
	b := browsertest.New()

	_, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	assert.ErrorIs(t, err, ErrPostUnavailable)
	assert.False(t, errs.IsFatal(err))
	assert.Equal(t, 3, b.Loads(link))
}

func TestPostRendersAfterReload(t *testing.T) {
	b := browsertest.New()
	b.OnNavigate = func(b *browsertest.Browser, url string, n int) error {
		if n == 2 {
			b.SetDOM(instagram.SelectorPageUsername, browsertest.NewElement())
			b.SetDOM(instagram.SelectorPostBox, imageItem(cdn(1)))
		}
		return nil
	}

	content, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	require.NoError(t, err)
	assert.Equal(t, []string{cdn(1)}, urls(content.Items))
	assert.Equal(t, 2, b.Loads(link))
}

func TestNavigationFailureIsReturned(t *testing.T) {
	b := postPage()
	b.OnNavigate = func(b *browsertest.Browser, url string, n int) error {
		b.SetDOM(instagram.SelectorErrorPage, browsertest.NewElement())
		return nil
	}

	_, err := newExtractor(b, &fakeData{}).Extract(context.Background(), link)
	assert.ErrorIs(t, err, navigator.ErrPageLoadTimeout)
	assert.True(t, errs.IsFatal(err))
}
