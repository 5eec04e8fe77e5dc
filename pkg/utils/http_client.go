package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrDownloadTooLarge 远程文件超出大小限制
	ErrDownloadTooLarge = errors.New("文件过大")
	// ErrNonPublicAddress 目标不是公网地址
	ErrNonPublicAddress = errors.New("禁止访问内网地址")
)

// NewHTTPClient 创建统一配置超时与 UA 的 Resty 客户端
func NewHTTPClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500*time.Millisecond).
		SetHeader("User-Agent", "ThaiLao-Logistics/1.0")
}

// NewPublicHTTPClient 只能连接公网地址的客户端，用于抓取用户提供的 URL
// 拨号时检查实际连接的 IP，重定向和 DNS 重绑定同样受限
func NewPublicHTTPClient(timeout time.Duration) *resty.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   publicOnlyControl,
	}
	return NewHTTPClient(timeout).SetTransport(&http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	})
}

func publicOnlyControl(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	if ip := net.ParseIP(host); ip == nil || !IsPublicIP(ip) {
		return fmt.Errorf("%w: %s", ErrNonPublicAddress, host)
	}
	return nil
}

// IsPublicIP 回环、私有、链路本地、未指定和组播地址都不算公网
func IsPublicIP(ip net.IP) bool {
	return !(ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() || ip.IsMulticast())
}

// LookupPublicHost 解析主机名，任一地址不是公网即拒绝
func LookupPublicHost(ctx context.Context, host string) error {
	if ip := net.ParseIP(host); ip != nil {
		if !IsPublicIP(ip) {
			return fmt.Errorf("%w: %s", ErrNonPublicAddress, host)
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return fmt.Errorf("解析主机失败: %w", err)
	}
	for _, addr := range addrs {
		if !IsPublicIP(addr.IP) {
			return fmt.Errorf("%w: %s -> %s", ErrNonPublicAddress, host, addr.IP)
		}
	}
	return nil
}

// DownloadFile 下载远程文件，返回内容和 Content-Type
// maxBytes > 0 时响应体读到上限即中止，返回 ErrDownloadTooLarge
func DownloadFile(ctx context.Context, client *resty.Client, url string, maxBytes int64) ([]byte, string, error) {
	req := client.R().SetContext(ctx)
	if maxBytes > 0 {
		req.SetResponseBodyLimit(int(maxBytes))
	}
	resp, err := req.Get(url)
	if errors.Is(err, resty.ErrResponseBodyTooLarge) {
		return nil, "", fmt.Errorf("%w: 超过 %d 字节", ErrDownloadTooLarge, maxBytes)
	}
	if err != nil {
		return nil, "", fmt.Errorf("下载失败: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, "", fmt.Errorf("下载失败: HTTP %d", resp.StatusCode())
	}

	data := resp.Body()
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, "", fmt.Errorf("%w: %d > %d 字节", ErrDownloadTooLarge, len(data), maxBytes)
	}

	return data, resp.Header().Get("Content-Type"), nil
}
