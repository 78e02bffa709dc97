package domain

// SourceFile 描述一次扫描得到的源图片文件（只做 stat，不读内容）。
//
// 不变量（实现必须遵守）：
// - AbsPath 必须是 clean + absolute
// - Base 是去掉扩展名的文件名，用于推导产物文件名
type SourceFile struct {
	AbsPath string
	Name    string // "photo-sala.jpg"
	Base    string // "photo-sala"
	Ext     string // ".jpg"（保留原大小写）
	Size    int64
}

// SourceImage 是已解码源图的尺寸信息；像素数据由 imgx 持有，生命周期限定在单个源文件的处理范围内。
type SourceImage struct {
	File   SourceFile
	Width  int
	Height int
}
