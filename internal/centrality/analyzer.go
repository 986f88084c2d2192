// Package centrality computes arbitrage rankings over the collected
// corpus: graph centrality measures that surface bridge-like but
// under-spread topics, channels, words, and videos.
package centrality

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"spyglass/internal/config"
	"spyglass/internal/logging"
	"spyglass/internal/store"
)

// Analyzer builds the co-occurrence graphs from a one-shot corpus load
// and scores them. Read-only with respect to the store.
type Analyzer struct {
	store     *store.Store
	logger    *slog.Logger
	tokenizer *Tokenizer

	sampleSize   int
	seed         int64
	minWordCount int
}

// NodeScore is one ranked graph node. Metric carries the popularity
// measure the arbitrage rule compares against the corpus mean.
type NodeScore struct {
	Node            string
	Degree          float64
	Betweenness     float64
	Interestingness float64
	Metric          float64
}

// VideoScore is one video in the video-topic projection. Degree is the
// raw count of other videos sharing the topic; betweenness is inherited
// from the topic node.
type VideoScore struct {
	VideoID         string
	Title           string
	Topic           string
	ViewCount       int64
	Degree          float64
	Betweenness     float64
	Interestingness float64
}

// GraphRanking holds the top-N lists of one graph.
type GraphRanking struct {
	Order          int
	TopBetweenness []NodeScore
	TopDegree      []NodeScore
}

// Report is one full analysis run.
type Report struct {
	Topics   GraphRanking
	Channels GraphRanking
	Words    GraphRanking

	TopicArbitrage   []NodeScore
	ChannelArbitrage []NodeScore
	WordArbitrage    []NodeScore
	VideoArbitrage   []VideoScore

	VideoCount  int
	GeneratedAt time.Time
}

// New builds an analyzer from configuration.
func New(cfg *config.Config, st *store.Store, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		store:        st,
		logger:       logging.WithComponent(logger, "centrality"),
		tokenizer:    NewTokenizer(cfg.Analysis.StopWords),
		sampleSize:   cfg.Analysis.BetweennessSampleSize,
		seed:         cfg.Analysis.BetweennessSampleSeed,
		minWordCount: cfg.Analysis.MinWordCount,
	}
}

// Interestingness is the arbitrage score of a node: how much bridging it
// does relative to how widely it has spread.
func Interestingness(betweenness, degree float64) float64 {
	return betweenness / math.Max(degree, 0.01)
}

// Analyze loads the corpus once, builds all graphs, and returns the
// rankings. topN bounds every emitted list.
func (a *Analyzer) Analyze(ctx context.Context, topN int) (*Report, error) {
	videos, err := a.store.FindVideos(ctx, store.VideoFilter{})
	if err != nil {
		return nil, err
	}
	report := &Report{VideoCount: len(videos), GeneratedAt: time.Now()}
	if len(videos) == 0 {
		return report, nil
	}

	c := newCorpus(videos, a.tokenizer)

	topicGraph := c.topicGraph()
	channelGraph := c.channelGraph()
	wordGraph := c.wordGraph(a.minWordCount)

	topicBC := topicGraph.Betweenness(a.sampleSize, a.seed)
	topicDeg := topicGraph.Degree()
	channelBC := channelGraph.Betweenness(a.sampleSize, a.seed)
	channelDeg := channelGraph.Degree()
	wordBC := wordGraph.Betweenness(a.sampleSize, a.seed)
	wordDeg := wordGraph.Degree()

	report.Topics = ranking(topicGraph, topicBC, topicDeg, c.topicVideoCounts(), topN)
	report.Channels = ranking(channelGraph, channelBC, channelDeg, c.channelSubscribers, topN)
	report.Words = ranking(wordGraph, wordBC, wordDeg, floatCounts(c.wordFreq), topN)

	report.TopicArbitrage = arbitrage(topicBC, topicDeg, c.topicVideoCounts(), topN)
	report.ChannelArbitrage = arbitrage(channelBC, channelDeg, c.channelSubscribers, topN)
	report.WordArbitrage = arbitrage(wordBC, wordDeg, floatCounts(c.wordFreq), topN)
	report.VideoArbitrage = c.videoArbitrage(topicBC, topN)

	a.logger.Info("analysis finished",
		logging.Int("videos", report.VideoCount),
		logging.Int("topics", topicGraph.Order()),
		logging.Int("channels", channelGraph.Order()),
		logging.Int("words", wordGraph.Order()))
	return report, nil
}

// corpus is the in-memory projection of the video table an analysis
// works from.
type corpus struct {
	videos    []store.Video
	tokenizer *Tokenizer

	topicsByChannel map[string]map[string]struct{}
	channelsByTopic map[string]map[string]struct{}
	videosByTopic   map[string]int

	channelSubscribers map[string]float64
	wordFreq           map[string]int
	tokensByTitle      [][]string
}

func newCorpus(videos []store.Video, tokenizer *Tokenizer) *corpus {
	c := &corpus{
		videos:             videos,
		tokenizer:          tokenizer,
		topicsByChannel:    make(map[string]map[string]struct{}),
		channelsByTopic:    make(map[string]map[string]struct{}),
		videosByTopic:      make(map[string]int),
		channelSubscribers: make(map[string]float64),
		wordFreq:           make(map[string]int),
	}
	for _, v := range videos {
		channel := channelKey(&v)
		topic := v.KeywordSource
		if topic != "" {
			c.videosByTopic[topic]++
			if channel != "" {
				set := c.topicsByChannel[channel]
				if set == nil {
					set = make(map[string]struct{})
					c.topicsByChannel[channel] = set
				}
				set[topic] = struct{}{}
				peers := c.channelsByTopic[topic]
				if peers == nil {
					peers = make(map[string]struct{})
					c.channelsByTopic[topic] = peers
				}
				peers[channel] = struct{}{}
			}
		}
		if channel != "" && float64(v.SubscriberCount) > c.channelSubscribers[channel] {
			c.channelSubscribers[channel] = float64(v.SubscriberCount)
		}
		tokens := tokenizer.Tokenize(v.Title)
		c.tokensByTitle = append(c.tokensByTitle, tokens)
		for _, tok := range tokens {
			c.wordFreq[tok]++
		}
	}
	return c
}

func channelKey(v *store.Video) string {
	if v.ChannelID != "" {
		return v.ChannelID
	}
	return v.ChannelName
}

// topicGraph links every pair of topics a channel has published to;
// the accumulated weight is the number of co-publishing channels.
func (c *corpus) topicGraph() *Graph {
	g := NewGraph()
	for topic := range c.videosByTopic {
		g.Ensure(topic)
	}
	for _, topics := range c.topicsByChannel {
		list := sortedKeys(topics)
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				g.AddEdge(list[i], list[j], 1)
			}
		}
	}
	return g
}

// channelGraph links channels that share at least one topic; weight is
// the number of shared topics.
func (c *corpus) channelGraph() *Graph {
	g := NewGraph()
	for channel := range c.topicsByChannel {
		g.Ensure(channel)
	}
	for _, channels := range c.channelsByTopic {
		list := sortedKeys(channels)
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				g.AddEdge(list[i], list[j], 1)
			}
		}
	}
	return g
}

// wordGraph links title tokens co-occurring in the same title, then
// prunes tokens seen fewer than minCount times across the corpus.
func (c *corpus) wordGraph(minCount int) *Graph {
	g := NewGraph()
	for _, tokens := range c.tokensByTitle {
		unique := sortedKeys(toSet(tokens))
		for _, tok := range unique {
			g.Ensure(tok)
		}
		for i := 0; i < len(unique); i++ {
			for j := i + 1; j < len(unique); j++ {
				g.AddEdge(unique[i], unique[j], 1)
			}
		}
	}
	if minCount <= 1 {
		return g
	}
	drop := make(map[string]struct{})
	for word, count := range c.wordFreq {
		if count < minCount {
			drop[word] = struct{}{}
		}
	}
	if len(drop) == 0 {
		return g
	}
	return g.Remove(drop)
}

func (c *corpus) topicVideoCounts() map[string]float64 {
	out := make(map[string]float64, len(c.videosByTopic))
	for topic, count := range c.videosByTopic {
		out[topic] = float64(count)
	}
	return out
}

// videoArbitrage projects topic betweenness onto videos and keeps the
// ones bridging more than their popularity suggests: inherited
// betweenness above zero with below-mean view counts.
func (c *corpus) videoArbitrage(topicBC map[string]float64, topN int) []VideoScore {
	if len(c.videos) == 0 {
		return nil
	}
	var total float64
	for _, v := range c.videos {
		total += float64(v.ViewCount)
	}
	meanViews := total / float64(len(c.videos))

	var out []VideoScore
	for _, v := range c.videos {
		bc := topicBC[v.KeywordSource]
		if bc <= 0 || float64(v.ViewCount) >= meanViews {
			continue
		}
		degree := float64(c.videosByTopic[v.KeywordSource] - 1)
		out = append(out, VideoScore{
			VideoID:         v.VideoID,
			Title:           v.Title,
			Topic:           v.KeywordSource,
			ViewCount:       v.ViewCount,
			Degree:          degree,
			Betweenness:     bc,
			Interestingness: Interestingness(bc, degree),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Interestingness != out[j].Interestingness {
			return out[i].Interestingness > out[j].Interestingness
		}
		return out[i].VideoID < out[j].VideoID
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func ranking(g *Graph, bc, deg, metric map[string]float64, topN int) GraphRanking {
	return GraphRanking{
		Order:          g.Order(),
		TopBetweenness: nodeScores(TopN(bc, topN), bc, deg, metric),
		TopDegree:      nodeScores(TopN(deg, topN), bc, deg, metric),
	}
}

// arbitrage keeps nodes with positive betweenness whose popularity
// metric sits below the corpus mean, ranked by interestingness.
func arbitrage(bc, deg, metric map[string]float64, topN int) []NodeScore {
	if len(metric) == 0 {
		return nil
	}
	var total float64
	for _, m := range metric {
		total += m
	}
	mean := total / float64(len(metric))

	var out []NodeScore
	for node, b := range bc {
		if b <= 0 || metric[node] >= mean {
			continue
		}
		out = append(out, scoreOf(node, bc, deg, metric))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Interestingness != out[j].Interestingness {
			return out[i].Interestingness > out[j].Interestingness
		}
		return out[i].Node < out[j].Node
	})
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func nodeScores(names []string, bc, deg, metric map[string]float64) []NodeScore {
	out := make([]NodeScore, 0, len(names))
	for _, name := range names {
		out = append(out, scoreOf(name, bc, deg, metric))
	}
	return out
}

func scoreOf(name string, bc, deg, metric map[string]float64) NodeScore {
	return NodeScore{
		Node:            name,
		Degree:          deg[name],
		Betweenness:     bc[name],
		Interestingness: Interestingness(bc[name], deg[name]),
		Metric:          metric[name],
	}
}

func floatCounts(counts map[string]int) map[string]float64 {
	out := make(map[string]float64, len(counts))
	for k, v := range counts {
		out[k] = float64(v)
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
