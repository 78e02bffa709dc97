// Package srcset 把生成的响应式变体写回 HTML：为引用源图的 <img> 补上 srcset。
package srcset

import (
	"bytes"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/John-Robertt/respimg/internal/domain"
)

// Candidate 是 srcset 中的一项：产物文件名 + 真实像素宽度（w 描述符）。
type Candidate struct {
	File  string
	Width int
}

// Options 控制写回的属性内容。
type Options struct {
	// Prefix 是产物目录相对 HTML 页面的 URL 前缀（例如 "images/optimized"）。
	Prefix string
	// Sizes 非空时，为尚无 sizes 属性的 <img> 补上 sizes。
	Sizes string
}

// FromReport 按源图 base name 聚合 RunReport 中的产物（dry-run 报告同样可用）。
//
// 描述符使用产物的真实宽度而不是槽位宽度：源图较窄时多个槽位会是同一宽度，只保留第一个。
// 每个源图的候选按宽度升序。
func FromReport(rr domain.RunReport) map[string][]Candidate {
	out := make(map[string][]Candidate)
	seen := make(map[string]map[int]struct{})
	for _, a := range rr.Artifacts {
		base := strings.TrimSuffix(a.Source, path.Ext(a.Source))
		if seen[base] == nil {
			seen[base] = map[int]struct{}{}
		}
		if _, dup := seen[base][a.OutWidth]; dup {
			continue
		}
		seen[base][a.OutWidth] = struct{}{}
		out[base] = append(out[base], Candidate{File: path.Base(a.Dst), Width: a.OutWidth})
	}
	for base := range out {
		cs := out[base]
		sort.SliceStable(cs, func(i, j int) bool { return cs[i].Width < cs[j].Width })
	}
	return out
}

// Attr 生成 srcset 属性值："<prefix>/<file> <w>w, ..."。
func Attr(prefix string, cands []Candidate) string {
	prefix = strings.TrimRight(prefix, "/")
	parts := make([]string, 0, len(cands))
	for _, c := range cands {
		u := c.File
		if prefix != "" {
			u = prefix + "/" + c.File
		}
		parts = append(parts, fmt.Sprintf("%s %dw", u, c.Width))
	}
	return strings.Join(parts, ", ")
}

// Annotate 为 HTML 中 src 指向某个源图的 <img> 设置 srcset（已有 srcset 会被覆盖）。
//
// 匹配规则：src 去掉 query/fragment 后取文件名，再去掉扩展名，与源图 base name 完全相等。
// 返回改写后的完整文档与被改写的 <img> 数量；没有任何匹配时原样返回输入。
func Annotate(html []byte, entries map[string][]Candidate, opts Options) ([]byte, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, 0, err
	}

	changed := 0
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		cands, ok := entries[sourceBase(src)]
		if !ok || len(cands) == 0 {
			return
		}
		s.SetAttr("srcset", Attr(opts.Prefix, cands))
		if opts.Sizes != "" {
			if _, has := s.Attr("sizes"); !has {
				s.SetAttr("sizes", opts.Sizes)
			}
		}
		changed++
	})
	if changed == 0 {
		return html, 0, nil
	}

	out, err := doc.Html()
	if err != nil {
		return nil, 0, err
	}
	return []byte(out), changed, nil
}

func sourceBase(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	name := path.Base(strings.TrimSpace(src))
	return strings.TrimSuffix(name, path.Ext(name))
}
