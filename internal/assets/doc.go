/*
包 assets 负责把打包好的 Web 资源暂存到可写目录，供路由层按路径读取。

# 概述

Stager 从 Bundle（任意 fs.FS）读取清单，逐个复制清单中的文件到
<暂存根目录>/web_build。单个文件失败只记录日志并跳过；全部尝试后
入口文件必须存在，否则整体失败。成功后记录暂存目录，后续调用在
入口文件仍存在时直接复用。

# 核心类型

  - Manifest：有序的相对路径列表，解析自换行分隔的清单文件
  - Stager：暂存器，Prepare 为唯一入口
  - Report：最近一次暂存的统计信息
*/
package assets
